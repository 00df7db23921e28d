// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// CollapseSpace trims s and replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitSentences splits text into sentences. Line breaks always end a sentence; within a
// line a sentence ends at '.', '!' or '?' followed by whitespace. Whitespace is collapsed and
// empty sentences are dropped. When maxLen > 0, longer sentences are cut at word boundaries
// into pieces of at most maxLen characters.
func SplitSentences(text string, maxLen int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		start := 0
		for i, r := range runes {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			out = appendSentence(out, string(runes[start:i+1]), maxLen)
			start = i + 1
		}
		out = appendSentence(out, string(runes[start:]), maxLen)
	}
	return out
}

func appendSentence(out []string, s string, maxLen int) []string {
	s = CollapseSpace(s)
	if s == "" {
		return out
	}
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return append(out, s)
	}
	var cur []rune
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > maxLen {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(w[:maxLen]))
			w = w[maxLen:]
		}
		if len(cur) > 0 && len(cur)+1+len(w) > maxLen {
			out = append(out, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
