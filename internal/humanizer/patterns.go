package humanizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type contraction struct {
	pattern  *regexp.Regexp
	informal string
}

type imperfection struct {
	pattern *regexp.Regexp
	variant string
	chance  float64
}

// PatternBank holds the phrase tables used by the techniques. It is built once
// and only read afterwards.
type PatternBank struct {
	transitions         []string
	fillers             []string
	personalTouches     []string
	rhetoricalQuestions []string
	contractions        []contraction
	imperfections       []imperfection
	synonyms            map[string][]string
	conjunctions        map[string]bool
	unemphasized        map[string]bool
}

// DefaultPatterns returns the built-in English pattern bank.
func DefaultPatterns() *PatternBank {
	return &PatternBank{
		transitions: []string{
			"Actually,", "You know,", "To be honest,", "Interestingly,", "Here's the thing:",
			"The way I see it,", "From my perspective,", "Let me explain:", "Basically,",
			"In other words,", "Simply put,", "Well,", "So,", "Now,", "Look,", "See,",
			"Anyway,", "Besides,",
		},
		fillers: []string{
			"kind of", "sort of", "pretty much", "more or less", "essentially", "basically",
			"actually", "really", "quite", "rather", "somewhat", "perhaps", "maybe",
			"probably", "I think", "I believe", "it seems",
		},
		personalTouches: []string{
			"I'd say", "I mean", "if you ask me", "in my experience", "from what I've seen",
			"personally", "honestly",
		},
		rhetoricalQuestions: []string{
			"You know what?", "But here's the question:", "Want to know something interesting?",
			"Guess what?",
		},
		contractions: newContractions([][2]string{
			{"it is", "it's"},
			{"is not", "isn't"},
			{"cannot", "can't"},
			{"will not", "won't"},
			{"do not", "don't"},
			{"I am", "I'm"},
			{"you are", "you're"},
			{"they are", "they're"},
			{"we are", "we're"},
			{"does not", "doesn't"},
			{"are not", "aren't"},
			{"that is", "that's"},
		}),
		imperfections: []imperfection{
			{regexp.MustCompile(`\bit's\b`), "its", 0.02},
			{regexp.MustCompile(`\btheir\b`), "there", 0.01},
			{regexp.MustCompile(`\beffect\b`), "affect", 0.01},
			{regexp.MustCompile(`\bwho\b`), "that", 0.03},
		},
		synonyms: map[string][]string{
			"good":      {"great", "fine", "nice", "excellent", "solid"},
			"bad":       {"poor", "terrible", "awful", "lousy"},
			"big":       {"large", "huge", "massive", "enormous"},
			"small":     {"little", "tiny", "minor", "slight"},
			"fast":      {"quick", "rapid", "speedy", "swift"},
			"slow":      {"gradual", "leisurely", "sluggish"},
			"important": {"key", "crucial", "essential", "vital"},
			"show":      {"reveal", "demonstrate", "indicate"},
			"use":       {"employ", "apply", "rely on"},
			"help":      {"assist", "support", "aid"},
			"problem":   {"issue", "snag", "difficulty"},
			"result":    {"outcome", "consequence", "upshot"},
			"quickly":   {"rapidly", "swiftly", "promptly"},
			"often":     {"frequently", "regularly", "commonly"},
			"many":      {"numerous", "plenty of", "lots of"},
			"method":    {"approach", "technique", "way"},
			"make":      {"create", "build", "produce"},
			"very":      {"really", "remarkably", "quite"},
		},
		conjunctions: wordSet("and", "but", "or", "while", "although"),
		unemphasized: wordSet("the", "a", "an", "and", "or", "but"),
	}
}

func newContractions(pairs [][2]string) []contraction {
	out := make([]contraction, len(pairs))
	for i, p := range pairs {
		out[i] = contraction{
			pattern:  regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
			informal: p[1],
		}
	}
	return out
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// contract applies every contraction in the table, keeping the case of the first letter.
func (p *PatternBank) contract(s string) string {
	for _, c := range p.contractions {
		s = c.pattern.ReplaceAllStringFunc(s, func(match string) string {
			return matchCase(match, c.informal)
		})
	}
	return s
}

// Synonyms returns the replacement candidates for a lowercase lemma.
func (p *PatternBank) Synonyms(lemma string) []string {
	return p.synonyms[lemma]
}

// matchCase capitalizes repl when the first letter of src is upper case.
func matchCase(src, repl string) string {
	r, _ := utf8.DecodeRuneInString(src)
	if unicode.IsUpper(r) {
		return upperFirst(repl)
	}
	return repl
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// lowerStart lowercases the first rune of s unless the first word is "I", an
// "I'" contraction, or an all-caps acronym.
func lowerStart(s string) string {
	first, _, _ := strings.Cut(s, " ")
	if first == "I" || strings.HasPrefix(first, "I'") || isAcronym(first) {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func isAcronym(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

// splitAffixes separates leading and trailing punctuation from a token.
func splitAffixes(token string) (prefix, core, suffix string) {
	start := strings.IndexFunc(token, isWordRune)
	if start < 0 {
		return token, "", ""
	}
	end := strings.LastIndexFunc(token, isWordRune)
	_, size := utf8.DecodeRuneInString(token[end:])
	return token[:start], token[start : end+size], token[end+size:]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
