package vector

import (
	"math"
	"testing"

	"github.com/hyperjump/vecsearch/internal/models"
)

func TestTopK_KeepsBest(t *testing.T) {
	top := newTopK(models.MetricCosine, 3, 6)
	for i, s := range []float64{0.1, 0.9, 0.5, 0.7, 0.2, math.NaN()} {
		top.offer(Candidate{Seq: int64(i + 1), Score: s})
	}
	got := top.sorted()
	want := []int64{2, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i].Seq != want[i] {
			t.Errorf("rank %d: got seq %d, want %d", i, got[i].Seq, want[i])
		}
	}
}

func TestTopK_LowerIsBetterWithTies(t *testing.T) {
	top := newTopK(models.MetricL2, 2, 4)
	top.offer(Candidate{Seq: 9, Score: 1})
	top.offer(Candidate{Seq: 4, Score: 1})
	top.offer(Candidate{Seq: 6, Score: 1})
	top.offer(Candidate{Seq: 1, Score: 3})
	got := top.sorted()
	if len(got) != 2 || got[0].Seq != 4 || got[1].Seq != 6 {
		t.Errorf("got %v, want seqs [4 6]", got)
	}
}

func TestTopK_ZeroK(t *testing.T) {
	top := newTopK(models.MetricCosine, 0, 1)
	top.offer(Candidate{Seq: 1, Score: 1})
	if len(top.sorted()) != 0 {
		t.Error("k=0 should keep nothing")
	}
}

func TestTopK_HugeKIsBoundedByCandidates(t *testing.T) {
	top := newTopK(models.MetricCosine, math.MaxInt, 2)
	if cap(top.items) != 2 {
		t.Errorf("cap = %d, want 2", cap(top.items))
	}
	top.offer(Candidate{Seq: 1, Score: 0.2})
	top.offer(Candidate{Seq: 2, Score: 0.8})
	if got := top.sorted(); len(got) != 2 || got[0].Seq != 2 {
		t.Errorf("got %v", got)
	}
}
