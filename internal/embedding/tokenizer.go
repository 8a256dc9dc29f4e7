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

// SimpleTokenizer lowercases text, splits words from punctuation the way a
// BERT basic tokenizer does and maps each piece to a hash-based token ID.
// It stands in for a vocabulary file when only the ONNX model is shipped.
type SimpleTokenizer struct{}

const (
	clsToken  = 101
	sepToken  = 102
	vocabSize = 30000
	// firstWordID keeps hashed IDs clear of the special token range.
	firstWordID = 1000
)

// Tokenize produces [CLS] t1 ... tn [SEP] padded to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 128
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsToken
	attentionMask[0] = 1

	pos := 1
	for _, piece := range SplitWords(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(firstWordID + HashString(piece)%(vocabSize-firstWordID))
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepToken
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and emits each punctuation rune as
// its own piece: "it's fine." gives [it ' s fine .].
func SplitWords(text string) []string {
	var pieces []string
	for _, field := range strings.Fields(text) {
		start := 0
		for i, r := range field {
			if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
				continue
			}
			if start < i {
				pieces = append(pieces, field[start:i])
			}
			end := i + len(string(r))
			pieces = append(pieces, field[i:end])
			start = end
		}
		if start < len(field) {
			pieces = append(pieces, field[start:])
		}
	}
	return pieces
}

// HashString returns a deterministic non-negative FNV-1a hash.
func HashString(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}
