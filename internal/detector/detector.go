// Package detector scores text for common machine-writing signals and picks
// humanize settings from the score.
package detector

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/models"
)

const (
	uniformVariance     = 10.0
	monotoneVariance    = 5.0
	phraseThreshold     = 2
	signalWeight        = 25
	highScoreThreshold  = 50
	qualityTierMinScore = 75
)

var contractionMarkers = []string{"'s", "'t", "'re", "'ve", "'ll", "'d", "'m"}

var aiPhrases = []string{
	"it is important to note",
	"in conclusion",
	"furthermore",
	"moreover",
	"nevertheless",
	"it should be noted",
	"in summary",
}

// Analyze scores text. Each of four signals adds 25 points: uniform sentence
// length, no contractions, more than two stock phrases, and very low length
// variance.
func Analyze(text string) *models.AnalyzeResponse {
	lengths := sentenceLengths(text)
	variance := lengthVariance(lengths)

	lower := strings.ToLower(text)
	found := make([]string, 0, len(aiPhrases))
	for _, p := range aiPhrases {
		if strings.Contains(lower, p) {
			found = append(found, p)
		}
	}

	patterns := models.AIPatterns{
		UniformSentenceLength: len(lengths) > 0 && variance < uniformVariance,
		LackOfContractions:    !hasContraction(text),
		AIPhrases:             found,
	}

	score := 0
	if patterns.UniformSentenceLength {
		score += signalWeight
	}
	if patterns.LackOfContractions {
		score += signalWeight
	}
	if len(found) > phraseThreshold {
		score += signalWeight
	}
	if variance < monotoneVariance {
		score += signalWeight
	}

	recommendation := "Light touch-up sufficient"
	if score > highScoreThreshold {
		recommendation = "High humanization needed"
	}
	return &models.AnalyzeResponse{
		TextLength:             len([]rune(text)),
		SentenceCount:          len(lengths),
		SentenceLengthVariance: variance,
		Patterns:               patterns,
		Score:                  score,
		AIProbability:          fmt.Sprintf("%d%%", score),
		Recommendation:         recommendation,
	}
}

// AutoSettings maps an analysis score to the tier and intensity used by
// detect-and-humanize.
func AutoSettings(score int) models.AutoSettings {
	s := models.AutoSettings{
		Tier:      string(humanizer.TierFast),
		Intensity: 0.5,
		Reason:    fmt.Sprintf("Based on %d%% AI probability", score),
	}
	switch {
	case score > qualityTierMinScore:
		s.Tier, s.Intensity = string(humanizer.TierQuality), 0.9
	case score > highScoreThreshold:
		s.Tier, s.Intensity = string(humanizer.TierBalanced), 0.7
	}
	return s
}

// sentenceLengths splits on every period, so abbreviations and decimals count
// as boundaries.
func sentenceLengths(text string) []int {
	var lengths []int
	for _, part := range strings.Split(text, ".") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		lengths = append(lengths, len(strings.Fields(part)))
	}
	return lengths
}

// lengthVariance is the population variance; zero for no sentences.
func lengthVariance(lengths []int) float64 {
	if len(lengths) == 0 {
		return 0
	}
	var sum float64
	for _, l := range lengths {
		sum += float64(l)
	}
	mean := sum / float64(len(lengths))
	var sq float64
	for _, l := range lengths {
		d := float64(l) - mean
		sq += d * d
	}
	return sq / float64(len(lengths))
}

func hasContraction(text string) bool {
	for _, c := range contractionMarkers {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}
