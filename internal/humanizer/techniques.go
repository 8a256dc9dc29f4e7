package humanizer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hyperjump/kotoba/internal/paraphrase"
	"github.com/hyperjump/kotoba/internal/postag"
	"go.uber.org/zap"
)

// Library applies individual techniques to a sentence. Every stochastic decision
// has the form draw < intensity * coefficient, drawn from the caller's Rand.
type Library struct {
	patterns    *PatternBank
	paraphraser paraphrase.Provider
	tagger      postag.Tagger
	logger      *zap.Logger
}

// NewLibrary builds a Library. A nil paraphraser disables paraphrasing and a nil
// tagger falls back to the lexicon tagger.
func NewLibrary(patterns *PatternBank, paraphraser paraphrase.Provider, tagger postag.Tagger, logger *zap.Logger) *Library {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	if paraphraser == nil {
		paraphraser = paraphrase.Unavailable{}
	}
	if tagger == nil {
		tagger = postag.NewLexiconTagger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{patterns: patterns, paraphraser: paraphraser, tagger: tagger, logger: logger}
}

// Apply runs technique t on s.
func (l *Library) Apply(ctx context.Context, t Technique, s string, intensity float64, rng Rand) (string, error) {
	switch t {
	case SemanticParaphrasing:
		return l.Paraphrase(ctx, s, intensity, rng), nil
	case SentenceVariation:
		return l.VarySentence(s, intensity, rng), nil
	case PerplexityModulation:
		return l.ModulatePerplexity(ctx, s, intensity, rng), nil
	case StylisticInjection:
		return l.InjectStyle(s, intensity, rng), nil
	case HumanPatterns:
		return l.AddHumanPatterns(s, intensity, rng), nil
	}
	return s, fmt.Errorf("unknown technique %d", int(t))
}

// ParaphraseTemperature maps intensity to the sampling temperature.
func ParaphraseTemperature(intensity float64) float64 {
	return 0.7 + intensity*0.5
}

// Paraphrase replaces s by a model paraphrase with probability intensity.
// Provider failures and empty output leave s unchanged.
func (l *Library) Paraphrase(ctx context.Context, s string, intensity float64, rng Rand) string {
	if !chance(rng, intensity) {
		return s
	}
	out, err := l.paraphraser.Paraphrase(ctx, s, ParaphraseTemperature(intensity))
	if err != nil {
		l.logger.Debug("paraphrase failed, keeping sentence", zap.Error(err))
		return s
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return s
	}
	return out
}

// VarySentence splits long sentences near the middle and swaps single-comma clauses.
func (l *Library) VarySentence(s string, intensity float64, rng Rand) string {
	if words := strings.Fields(s); len(words) > 15 && chance(rng, intensity*0.5) {
		if split, ok := l.splitNearMidpoint(words); ok {
			s = split
		}
	}
	if strings.Count(s, ",") == 1 && chance(rng, intensity*0.3) {
		s = swapClauses(s)
	}
	return s
}

// splitNearMidpoint looks for a conjunction or a comma-terminated word within
// mid-3..mid+2 and splits there, preferring the position closest to mid (earlier
// on ties). A conjunction is dropped; the second half is capitalized.
func (l *Library) splitNearMidpoint(words []string) (string, bool) {
	mid := len(words) / 2
	best, bestDist := -1, 0
	for i := mid - 3; i < mid+3; i++ {
		if i <= 0 || i >= len(words)-1 {
			continue
		}
		if !l.isConjunction(words[i]) && !strings.HasSuffix(words[i], ",") {
			continue
		}
		d := abs(i - mid)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", false
	}

	var first, second []string
	if l.isConjunction(words[best]) {
		first, second = words[:best], words[best+1:]
	} else {
		first, second = words[:best+1], words[best+1:]
	}
	if len(first) == 0 || len(second) == 0 {
		return "", false
	}

	head := strings.TrimRight(strings.Join(first, " "), ",;: ")
	if head == "" {
		return "", false
	}
	if r := head[len(head)-1]; r != '.' && r != '!' && r != '?' {
		head += "."
	}
	return head + " " + upperFirst(strings.Join(second, " ")), true
}

func (l *Library) isConjunction(word string) bool {
	return l.patterns.conjunctions[strings.ToLower(word)]
}

// swapClauses turns "A, B." into "B, a." keeping terminal punctuation at the end.
func swapClauses(s string) string {
	before, after, ok := strings.Cut(s, ",")
	if !ok {
		return s
	}
	first := strings.TrimSpace(before)
	second := strings.TrimSpace(after)
	terminal := ""
	if trimmed := strings.TrimRight(second, ".!?"); len(trimmed) < len(second) {
		terminal = second[len(trimmed):]
		second = strings.TrimSpace(trimmed)
	}
	if first == "" || second == "" {
		return s
	}
	return upperFirst(second) + ", " + lowerStart(first) + terminal
}

// ModulatePerplexity replaces tagged content words with synonyms, each with
// probability intensity*0.1. Surrounding punctuation and capitalization are kept.
func (l *Library) ModulatePerplexity(ctx context.Context, s string, intensity float64, rng Rand) string {
	tokens, err := l.tagger.Tag(ctx, s)
	if err != nil {
		l.logger.Debug("tagging failed, keeping sentence", zap.Error(err))
		return s
	}
	words := strings.Fields(s)
	aligned := alignTokens(words, tokens)
	changed := false
	for i, w := range words {
		if !chance(rng, intensity*0.1) {
			continue
		}
		tok := aligned[i]
		if tok == nil || !postag.IsContent(tok.Tag) {
			continue
		}
		syns := l.patterns.Synonyms(tok.Lemma)
		if len(syns) == 0 {
			continue
		}
		prefix, core, suffix := splitAffixes(w)
		words[i] = prefix + matchCase(core, choose(rng, syns)) + suffix
		changed = true
	}
	if !changed {
		return s
	}
	return strings.Join(words, " ")
}

// alignTokens maps whitespace words to tagger tokens by walking both in order.
func alignTokens(words []string, tokens []postag.Token) []*postag.Token {
	aligned := make([]*postag.Token, len(words))
	next := 0
	for i, w := range words {
		_, core, _ := splitAffixes(w)
		if core == "" {
			continue
		}
		for j := next; j < len(tokens); j++ {
			if tokens[j].Text == core || strings.Trim(tokens[j].Text, "'") == core {
				aligned[i] = &tokens[j]
				next = j + 1
				break
			}
		}
	}
	return aligned
}

// InjectStyle adds a rhetorical lead-in or emphasis with probability intensity.
func (l *Library) InjectStyle(s string, intensity float64, rng Rand) string {
	if !chance(rng, intensity) {
		return s
	}
	if chance(rng, 0.1) {
		s = choose(rng, l.patterns.rhetoricalQuestions) + " " + s
	}
	words := strings.Fields(s)
	if len(words) > 5 && chance(rng, 0.15) {
		idx := 1 + rng.IntN(len(words)-2)
		prefix, core, suffix := splitAffixes(words[idx])
		if core != "" && !l.patterns.unemphasized[strings.ToLower(core)] {
			words[idx] = prefix + "*" + core + "*" + suffix
			s = strings.Join(words, " ")
		}
	}
	return s
}

// AddHumanPatterns applies fillers, contractions, imperfections and personal
// touches, each with its own probability.
func (l *Library) AddHumanPatterns(s string, intensity float64, rng Rand) string {
	if chance(rng, intensity*0.2) {
		if words := strings.Fields(s); len(words) > 3 {
			pos := 1 + rng.IntN(len(words)-1)
			filler := choose(rng, l.patterns.fillers)
			words = slices.Insert(words, pos, filler)
			s = strings.Join(words, " ")
		}
	}
	if chance(rng, intensity*0.4) {
		s = l.patterns.contract(s)
	}
	if chance(rng, intensity*0.05) {
		for _, imp := range l.patterns.imperfections {
			loc := imp.pattern.FindStringIndex(s)
			if loc == nil || !chance(rng, imp.chance) {
				continue
			}
			s = s[:loc[0]] + imp.variant + s[loc[1]:]
		}
	}
	if chance(rng, intensity*0.15) {
		s = choose(rng, l.patterns.personalTouches) + ", " + lowerStart(s)
	}
	return s
}

// AddTransition prefixes s with a transition phrase with probability intensity*0.3.
func (l *Library) AddTransition(s string, intensity float64, rng Rand) string {
	if !chance(rng, intensity*0.3) {
		return s
	}
	return choose(rng, l.patterns.transitions) + " " + lowerStart(s)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
