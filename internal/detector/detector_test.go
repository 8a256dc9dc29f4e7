package detector

import (
	"math"
	"testing"
)

func TestAnalyze_MachineLikeText(t *testing.T) {
	text := "It is important to note that the model works well. Furthermore the data is clean and ready. " +
		"Moreover the results are strong and clear. In conclusion the approach is sound and useful."
	got := Analyze(text)

	if got.SentenceCount != 4 {
		t.Errorf("sentence count = %d, want 4", got.SentenceCount)
	}
	if !got.Patterns.UniformSentenceLength || !got.Patterns.LackOfContractions {
		t.Errorf("patterns = %+v", got.Patterns)
	}
	if len(got.Patterns.AIPhrases) != 4 {
		t.Errorf("phrases = %v", got.Patterns.AIPhrases)
	}
	if got.Score != 100 || got.AIProbability != "100%" {
		t.Errorf("score = %d (%s), want 100", got.Score, got.AIProbability)
	}
	if got.Recommendation != "High humanization needed" {
		t.Errorf("recommendation = %q", got.Recommendation)
	}
}

func TestAnalyze_HumanText(t *testing.T) {
	text := "I'm not sure. Honestly, we tried three different approaches over the long weekend and none of them really stuck with the team. " +
		"Oh well."
	got := Analyze(text)
	if got.Patterns.LackOfContractions {
		t.Error("contraction should be detected")
	}
	if got.Patterns.UniformSentenceLength {
		t.Errorf("variance %.1f should not be uniform", got.SentenceLengthVariance)
	}
	if got.Score != 0 || got.AIProbability != "0%" {
		t.Errorf("score = %d", got.Score)
	}
	if got.Recommendation != "Light touch-up sufficient" {
		t.Errorf("recommendation = %q", got.Recommendation)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	got := Analyze("")
	if got.SentenceCount != 0 || got.TextLength != 0 {
		t.Errorf("got %+v", got)
	}
	// no sentences: only the contraction and variance signals can fire
	if got.Score != 50 {
		t.Errorf("score = %d, want 50", got.Score)
	}
	if got.Patterns.AIPhrases == nil {
		t.Error("phrases should be an empty list, not nil")
	}
}

func TestLengthVariance(t *testing.T) {
	if v := lengthVariance([]int{2, 4, 6}); math.Abs(v-8.0/3) > 1e-9 {
		t.Errorf("variance = %f", v)
	}
	if v := lengthVariance(nil); v != 0 {
		t.Errorf("variance of nothing = %f", v)
	}
}

func TestAutoSettings(t *testing.T) {
	tests := []struct {
		score     int
		tier      string
		intensity float64
	}{
		{100, "quality", 0.9},
		{76, "quality", 0.9},
		{75, "balanced", 0.7},
		{51, "balanced", 0.7},
		{50, "fast", 0.5},
		{0, "fast", 0.5},
	}
	for _, tt := range tests {
		got := AutoSettings(tt.score)
		if got.Tier != tt.tier || got.Intensity != tt.intensity {
			t.Errorf("AutoSettings(%d) = %+v, want %s/%v", tt.score, got, tt.tier, tt.intensity)
		}
	}
	if r := AutoSettings(75).Reason; r != "Based on 75% AI probability" {
		t.Errorf("reason = %q", r)
	}
}
