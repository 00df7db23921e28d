package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Special token IDs of the uncased BERT vocabulary used by all-MiniLM-L6-v2.
const (
	tokenUNK = 100
	tokenCLS = 101
	tokenSEP = 102
)

const maxWordPieceRunes = 100

// WordPieceTokenizer implements BERT uncased tokenization over a vocab.txt file:
// lower-casing, punctuation splitting, then greedy longest-match subwords with "##" continuation.
type WordPieceTokenizer struct {
	vocab map[string]int64
	unk   int64
	cls   int64
	sep   int64
}

// LoadWordPieceTokenizer reads a vocab.txt with one token per line; the line number is the ID.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimRight(scanner.Text(), "\r")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocab: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab %s is empty", path)
	}
	return newWordPieceTokenizer(vocab), nil
}

func newWordPieceTokenizer(vocab map[string]int64) *WordPieceTokenizer {
	t := &WordPieceTokenizer{vocab: vocab, unk: tokenUNK, cls: tokenCLS, sep: tokenSEP}
	if id, ok := vocab["[UNK]"]; ok {
		t.unk = id
	}
	if id, ok := vocab["[CLS]"]; ok {
		t.cls = id
	}
	if id, ok := vocab["[SEP]"]; ok {
		t.sep = id
	}
	return t
}

// Tokenize produces [CLS] tokens [SEP] padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	var ids []int64
	for _, word := range basicTokens(text) {
		ids = append(ids, t.wordPieces(word)...)
	}
	return packTokens(ids, t.cls, t.sep, maxTokens)
}

func (t *WordPieceTokenizer) wordPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordPieceRunes {
		return []int64{t.unk}
	}
	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		var id int64 = -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if v, ok := t.vocab[piece]; ok {
				id = v
				break
			}
			end--
		}
		if id < 0 {
			return []int64{t.unk}
		}
		ids = append(ids, id)
		start = end
	}
	return ids
}

// basicTokens lower-cases text and splits it on whitespace and punctuation.
// Each punctuation rune becomes its own token.
func basicTokens(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}
