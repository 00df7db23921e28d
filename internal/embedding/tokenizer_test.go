package embedding

import (
	"testing"
)

func TestHashTokenizer_Tokenize(t *testing.T) {
	ids, attn, types := HashTokenizer{}.Tokenize("Hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != tokenCLS || ids[3] != tokenSEP {
		t.Errorf("ids = %v, want CLS w w SEP", ids)
	}
	for _, id := range ids[1:3] {
		if id < firstWordID || id >= bertVocabSize {
			t.Errorf("word id %d outside vocabulary range", id)
		}
	}
	again, _, _ := HashTokenizer{}.Tokenize("hello WORLD", 10)
	if again[1] != ids[1] || again[2] != ids[2] {
		t.Error("word ids should ignore case")
	}
	want := []int64{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if attn[i] != want[i] {
			t.Fatalf("attention = %v", attn)
		}
	}
}

func TestPackTokens(t *testing.T) {
	ids, mask, _ := packTokens([]int64{7, 8, 9}, 1, 2, 4)
	if got := []int64{1, 7, 8, 2}; ids[0] != got[0] || ids[1] != got[1] || ids[2] != got[2] || ids[3] != got[3] {
		t.Errorf("truncated ids = %v, want %v", ids, got)
	}
	for _, m := range mask {
		if m != 1 {
			t.Errorf("mask = %v", mask)
		}
	}
	if ids, _, _ := packTokens(nil, 1, 2, 0); len(ids) != defaultMaxTokens || ids[1] != 2 {
		t.Errorf("empty input with default length: len=%d ids[1]=%d", len(ids), ids[1])
	}
}

func TestWords(t *testing.T) {
	got := Words("Hello, World! It's 2024.")
	want := []string{"hello", "world", "it", "s", "2024"}
	if len(got) != len(want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Words[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
