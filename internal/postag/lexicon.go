package postag

import (
	"context"
	"strings"
	"unicode"
)

// LexiconTagger tags words from closed-class word lists and suffix rules.
// Unknown words default to NOUN. Safe for concurrent use.
type LexiconTagger struct {
	closed     map[string]Tag
	adjectives map[string]bool
	adverbs    map[string]bool
	verbs      map[string]bool
	verbCues   map[string]bool
}

// NewLexiconTagger returns a tagger with the built-in English lexicon.
func NewLexiconTagger() *LexiconTagger {
	t := &LexiconTagger{
		closed:     make(map[string]Tag),
		adjectives: set("good", "bad", "big", "small", "fast", "slow", "important", "new", "old", "great", "high", "low", "long", "short", "different", "large", "early", "late", "young", "clear", "easy", "hard", "simple", "many"),
		adverbs:    set("very", "often", "always", "never", "also", "just", "still", "soon", "quite", "too", "here", "there", "now", "then", "again", "almost"),
		verbs:      set("is", "are", "was", "were", "be", "been", "being", "has", "have", "had", "do", "does", "did", "make", "use", "help", "show", "get", "go", "take", "see", "know", "think", "need", "want", "give", "find", "work"),
		verbCues:   set("i", "you", "we", "they", "he", "she", "it", "to", "can", "will", "should", "must", "would", "could", "may", "might", "shall"),
	}
	for tag, words := range map[Tag][]string{
		Det:  {"the", "a", "an", "this", "that", "these", "those", "every", "each", "some", "any", "no", "all", "both", "its", "their", "his", "her", "our", "your", "my"},
		Pron: {"i", "you", "he", "she", "it", "we", "they", "me", "him", "us", "them", "who", "whom", "which", "what", "itself", "themselves"},
		Adp:  {"in", "on", "at", "by", "for", "with", "about", "against", "between", "into", "through", "during", "before", "after", "above", "below", "to", "from", "up", "down", "of", "over", "under"},
		Conj: {"and", "but", "or", "nor", "so", "yet", "while", "although", "because", "if", "unless", "since", "whereas"},
		Verb: {"can", "will", "should", "must", "would", "could", "may", "might", "shall"},
	} {
		for _, w := range words {
			t.closed[w] = tag
		}
	}
	return t
}

// Tag splits text on whitespace and tags each word.
func (t *LexiconTagger) Tag(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))
	prev := ""
	for _, field := range fields {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		word = strings.Trim(word, "'")
		if word == "" {
			tokens = append(tokens, Token{Text: field, Tag: Punct, Lemma: field})
			prev = ""
			continue
		}
		lower := strings.ToLower(word)
		tokens = append(tokens, Token{Text: word, Tag: t.classify(lower, prev), Lemma: lower})
		prev = lower
	}
	return tokens, nil
}

func (t *LexiconTagger) classify(word, prev string) Tag {
	if tag, ok := t.closed[word]; ok {
		return tag
	}
	if isNumber(word) {
		return Num
	}
	switch {
	case t.adjectives[word]:
		return Adj
	case t.adverbs[word]:
		return Adv
	case t.verbs[word]:
		return Verb
	}
	switch {
	case strings.HasSuffix(word, "ly") && len(word) > 4:
		return Adv
	case strings.HasSuffix(word, "ing") && len(word) > 5,
		strings.HasSuffix(word, "ed") && len(word) > 4:
		return Verb
	case hasAnySuffix(word, "ous", "ful", "ive", "able", "ible", "less", "ical"):
		return Adj
	}
	if t.verbCues[prev] {
		return Verb
	}
	return Noun
}

func hasAnySuffix(word string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(word, s) && len(word) > len(s)+2 {
			return true
		}
	}
	return false
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
