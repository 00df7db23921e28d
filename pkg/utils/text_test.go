package utils

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("héllo", 2); got != "hé..." {
		t.Errorf("multi-byte: got %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "   \n\n", nil},
		{"punctuation", "The weather is nice today. I enjoy reading science fiction books!  Really?",
			[]string{"The weather is nice today.", "I enjoy reading science fiction books!", "Really?"}},
		{"lines", "first line\nsecond   line\n\nthird", []string{"first line", "second line", "third"}},
		{"decimals stay", "Pi is 3.14 roughly. Yes", []string{"Pi is 3.14 roughly.", "Yes"}},
		{"trailing text", "no terminator", []string{"no terminator"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text, 0)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitSentences_MaxLen(t *testing.T) {
	got := SplitSentences("one two three four five", 9)
	want := []string{"one two", "three", "four five"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	long := strings.Repeat("a", 25)
	for _, s := range SplitSentences("x "+long, 10) {
		if utf8.RuneCountInString(s) > 10 {
			t.Errorf("piece %q exceeds limit", s)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a \t b\n c "); got != "a b c" {
		t.Errorf("got %q", got)
	}
}
