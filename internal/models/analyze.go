package models

import "github.com/hyperjump/kotoba/internal/humanizer"

// AnalyzeRequest is the input of an analysis call.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// Validate rejects empty text.
func (r *AnalyzeRequest) Validate() error {
	if r.Text == "" {
		return humanizer.InvalidParameter("text", "cannot be empty")
	}
	return nil
}

// AIPatterns lists the signals the detector checks.
type AIPatterns struct {
	RepetitiveStructure   bool     `json:"repetitive_structure"`
	UniformSentenceLength bool     `json:"uniform_sentence_length"`
	LackOfContractions    bool     `json:"lack_of_contractions"`
	FormalTone            bool     `json:"formal_tone"`
	PerfectGrammar        bool     `json:"perfect_grammar"`
	AIPhrases             []string `json:"ai_phrases"`
}

// AnalyzeResponse is the detector's verdict.
type AnalyzeResponse struct {
	TextLength             int        `json:"text_length"`
	SentenceCount          int        `json:"sentence_count"`
	SentenceLengthVariance float64    `json:"sentence_length_variance"`
	Patterns               AIPatterns `json:"ai_patterns_detected"`
	// Score is the AI probability in percent; AIProbability renders it as "N%".
	Score          int    `json:"score"`
	AIProbability  string `json:"ai_probability"`
	Recommendation string `json:"recommendation"`
}

// AutoSettings are the humanize settings picked from an analysis score.
type AutoSettings struct {
	Tier      string  `json:"tier"`
	Intensity float64 `json:"intensity"`
	Reason    string  `json:"reason"`
}

// DetectResponse combines an analysis with the humanization it triggered.
type DetectResponse struct {
	Analysis     *AnalyzeResponse  `json:"analysis"`
	Humanization *HumanizeResponse `json:"humanization"`
	AutoSettings AutoSettings      `json:"auto_settings"`
}
