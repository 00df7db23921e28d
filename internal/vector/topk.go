package vector

import (
	"container/heap"
	"math"
	"sort"

	"github.com/hyperjump/vecsearch/internal/models"
)

// better reports whether a ranks before b under m. Equal scores rank the lower Seq first.
func better(m models.Metric, a, b Candidate) bool {
	if a.Score != b.Score {
		if m.HigherIsBetter() {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	return a.Seq < b.Seq
}

// topK keeps the k best candidates seen so far. The heap root is the worst kept candidate.
type topK struct {
	metric models.Metric
	k      int
	items  []Candidate
}

// newTopK keeps the k best of at most n offered candidates. The buffer is sized from the
// smaller of the two so an oversized k costs nothing.
func newTopK(m models.Metric, k, n int) *topK {
	return &topK{metric: m, k: k, items: make([]Candidate, 0, max(0, min(k, n)))}
}

func (t *topK) Len() int           { return len(t.items) }
func (t *topK) Less(i, j int) bool { return better(t.metric, t.items[j], t.items[i]) }
func (t *topK) Swap(i, j int)      { t.items[i], t.items[j] = t.items[j], t.items[i] }
func (t *topK) Push(x any)         { t.items = append(t.items, x.(Candidate)) }
func (t *topK) Pop() any {
	n := len(t.items)
	c := t.items[n-1]
	t.items = t.items[:n-1]
	return c
}

// offer adds c if it ranks among the k best. NaN scores are dropped.
func (t *topK) offer(c Candidate) {
	if t.k <= 0 || math.IsNaN(c.Score) {
		return
	}
	if len(t.items) < t.k {
		heap.Push(t, c)
		return
	}
	if better(t.metric, c, t.items[0]) {
		t.items[0] = c
		heap.Fix(t, 0)
	}
}

// sorted returns the kept candidates best first.
func (t *topK) sorted() []Candidate {
	out := make([]Candidate, len(t.items))
	copy(out, t.items)
	sort.Slice(out, func(i, j int) bool { return better(t.metric, out[i], out[j]) })
	return out
}
