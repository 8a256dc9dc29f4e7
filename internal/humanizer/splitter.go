package humanizer

import (
	"strings"
	"unicode"
)

// Sentence is one unit of the pipeline. Original never changes; Text is the working copy.
type Sentence struct {
	Index    int
	Original string
	Text     string
}

// SplitSentences splits text after '.', '!' or '?' when followed by whitespace.
// Fragments are trimmed and empty ones dropped. Abbreviations such as "Dr. Smith"
// are split like any other boundary.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	add := func(fragment []rune) {
		if s := strings.TrimSpace(string(fragment)); s != "" {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		add(runes[start : i+1])
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		add(runes[start:])
	}
	return sentences
}

// NewDocument splits text into indexed sentences.
func NewDocument(text string) []Sentence {
	parts := SplitSentences(text)
	doc := make([]Sentence, len(parts))
	for i, p := range parts {
		doc[i] = Sentence{Index: i, Original: p, Text: p}
	}
	return doc
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
