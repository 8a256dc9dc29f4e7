// Package postag assigns coarse part-of-speech tags to English text.
package postag

import "context"

// Tag is a universal part-of-speech tag.
type Tag string

const (
	Noun  Tag = "NOUN"
	Verb  Tag = "VERB"
	Adj   Tag = "ADJ"
	Adv   Tag = "ADV"
	Det   Tag = "DET"
	Pron  Tag = "PRON"
	Adp   Tag = "ADP"
	Conj  Tag = "CONJ"
	Num   Tag = "NUM"
	Punct Tag = "PUNCT"
	Other Tag = "X"
)

// Token is one tagged word. Text is the word without surrounding punctuation.
type Token struct {
	Text  string
	Tag   Tag
	Lemma string
}

// Tagger tags a sentence.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]Token, error)
}

// IsContent reports whether t is an open-class tag (noun, verb, adjective, adverb).
func IsContent(t Tag) bool {
	switch t {
	case Noun, Verb, Adj, Adv:
		return true
	}
	return false
}
