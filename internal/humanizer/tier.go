package humanizer

import (
	"slices"
	"strings"
)

// TierName names a processing profile.
type TierName string

const (
	TierFast     TierName = "fast"
	TierBalanced TierName = "balanced"
	TierQuality  TierName = "quality"
)

// ModelClass selects the backend model size.
type ModelClass string

const (
	ModelSmall  ModelClass = "small"
	ModelMedium ModelClass = "medium"
	ModelLarge  ModelClass = "large"
)

// Tier is an immutable processing profile.
type Tier struct {
	Name             TierName
	Techniques       []Technique
	ModelClass       ModelClass
	GateEnabled      bool
	Transitions      bool
	DefaultIntensity float64
}

// DefaultTiers returns fresh copies of the built-in tiers.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:             TierFast,
			Techniques:       []Technique{SentenceVariation, HumanPatterns},
			ModelClass:       ModelSmall,
			Transitions:      true,
			DefaultIntensity: 0.7,
		},
		{
			Name:             TierBalanced,
			Techniques:       []Technique{SemanticParaphrasing, SentenceVariation, HumanPatterns},
			ModelClass:       ModelMedium,
			GateEnabled:      true,
			DefaultIntensity: 0.7,
		},
		{
			Name:             TierQuality,
			Techniques:       AllTechniques(),
			ModelClass:       ModelLarge,
			GateEnabled:      true,
			DefaultIntensity: 0.7,
		},
	}
}

// TierNames lists the built-in tier names.
func TierNames() []TierName {
	return []TierName{TierFast, TierBalanced, TierQuality}
}

// ParseTier validates a tier name.
func ParseTier(name string) (TierName, error) {
	n := TierName(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(TierNames(), n) {
		return n, nil
	}
	return "", InvalidParameter("tier", "unknown tier %q (want fast, balanced or quality)", name)
}

// ModelClasses lists every model class.
func ModelClasses() []ModelClass {
	return []ModelClass{ModelSmall, ModelMedium, ModelLarge}
}
