package humanizer

import (
	"slices"
	"strings"
)

// Technique identifies one sentence transformation. The numeric order is the
// canonical application order.
type Technique int

const (
	SemanticParaphrasing Technique = iota
	SentenceVariation
	PerplexityModulation
	StylisticInjection
	HumanPatterns
)

// Speed is the relative cost class of a technique.
type Speed string

const (
	SpeedFast   Speed = "fast"
	SpeedMedium Speed = "medium"
	SpeedSlow   Speed = "slow"
)

type techniqueInfo struct {
	name        string
	description string
	speed       Speed
}

var techniqueTable = [...]techniqueInfo{
	SemanticParaphrasing: {"semantic_paraphrasing", "Rewrites the sentence with a paraphrase model", SpeedSlow},
	SentenceVariation:    {"sentence_variation", "Splits long sentences and reorders clauses", SpeedFast},
	PerplexityModulation: {"perplexity_modulation", "Swaps content words for less predictable synonyms", SpeedMedium},
	StylisticInjection:   {"stylistic_injection", "Adds rhetorical lead-ins and emphasis", SpeedFast},
	HumanPatterns:        {"human_patterns", "Adds fillers, contractions, personal touches and small imperfections", SpeedFast},
}

// AllTechniques returns every technique in canonical order.
func AllTechniques() []Technique {
	return []Technique{SemanticParaphrasing, SentenceVariation, PerplexityModulation, StylisticInjection, HumanPatterns}
}

func (t Technique) valid() bool {
	return t >= SemanticParaphrasing && t <= HumanPatterns
}

func (t Technique) String() string {
	if !t.valid() {
		return "unknown"
	}
	return techniqueTable[t].name
}

// Description is a one-line summary for the techniques catalogue.
func (t Technique) Description() string {
	if !t.valid() {
		return ""
	}
	return techniqueTable[t].description
}

// Speed returns the cost class of t.
func (t Technique) Speed() Speed {
	if !t.valid() {
		return ""
	}
	return techniqueTable[t].speed
}

// ParseTechnique maps a technique name to its value.
func ParseTechnique(name string) (Technique, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, t := range AllTechniques() {
		if techniqueTable[t].name == n {
			return t, nil
		}
	}
	return 0, InvalidParameter("techniques", "unknown technique %q", name)
}

// ParseTechniques parses names and returns them deduplicated in canonical order.
func ParseTechniques(names []string) ([]Technique, error) {
	out := make([]Technique, 0, len(names))
	for _, name := range names {
		t, err := ParseTechnique(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return Canonical(out), nil
}

// Canonical returns a sorted, deduplicated copy of ts.
func Canonical(ts []Technique) []Technique {
	out := slices.Clone(ts)
	slices.Sort(out)
	return slices.Compact(out)
}

// TechniqueNames renders ts as names.
func TechniqueNames(ts []Technique) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.String()
	}
	return names
}
