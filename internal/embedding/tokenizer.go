package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	defaultMaxTokens = 256
	bertVocabSize    = 30522
	// IDs below this are special or unused entries in the BERT vocabulary.
	firstWordID = 1000
)

// packTokens lays out [CLS] ids [SEP] zero-padded to maxTokens, truncating ids to fit.
func packTokens(ids []int64, cls, sep int64, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	inputIDs[0] = cls
	copy(inputIDs[1:], ids)
	inputIDs[len(ids)+1] = sep
	for i := 0; i < len(ids)+2; i++ {
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// HashTokenizer maps each lower-cased word to a stable ID inside the BERT vocabulary range.
// It is the fallback when a model ships without vocab.txt; the model sees consistent but
// meaningless IDs, so retrieval quality depends on WordPiece being available.
type HashTokenizer struct{}

// Tokenize hashes the words of text.
func (HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := Words(text)
	ids := make([]int64, len(words))
	for i, word := range words {
		ids[i] = hashTokenID(word)
	}
	return packTokens(ids, tokenCLS, tokenSEP, maxTokens)
}

func hashTokenID(word string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return firstWordID + int64(h.Sum32()%(bertVocabSize-firstWordID))
}

// Words lower-cases text and splits it into runs of letters and digits.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
