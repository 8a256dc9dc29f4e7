// Package models defines the request and response bodies shared by the HTTP
// server, the service layer and the CLI.
package models

import (
	"time"
	"unicode/utf8"

	"github.com/hyperjump/kotoba/internal/humanizer"
)

// HumanizeRequest is the input of a single humanize call.
type HumanizeRequest struct {
	Text string `json:"text"`
	Tier string `json:"tier,omitempty"`
	// Mode is accepted as an alias of Tier.
	Mode            string   `json:"mode,omitempty"`
	Intensity       *float64 `json:"intensity,omitempty"`
	PreserveMeaning *bool    `json:"preserve_meaning,omitempty"`
	Techniques      []string `json:"techniques,omitempty"`
	Cache           *bool    `json:"cache,omitempty"`
	Seed            *uint64  `json:"seed,omitempty"`
}

// RequestDefaults are applied to fields a request leaves unset.
type RequestDefaults struct {
	Tier          string
	Intensity     float64
	MaxTextLength int
}

// Validate fills unset fields from d and rejects oversized text, unknown tiers,
// out-of-range intensity and unknown techniques. Empty text is valid and
// humanizes to "". Every error it returns matches humanizer.ErrInvalidParameter.
func (r *HumanizeRequest) Validate(d RequestDefaults) error {
	if d.MaxTextLength > 0 && utf8.RuneCountInString(r.Text) > d.MaxTextLength {
		return humanizer.InvalidParameter("text", "longer than %d characters", d.MaxTextLength)
	}
	if r.Tier == "" {
		r.Tier = r.Mode
	}
	if r.Tier == "" {
		r.Tier = d.Tier
	}
	tier, err := humanizer.ParseTier(r.Tier)
	if err != nil {
		return err
	}
	r.Tier = string(tier)
	r.Mode = ""

	if r.Intensity == nil {
		v := d.Intensity
		r.Intensity = &v
	}
	if err := humanizer.ValidateIntensity(*r.Intensity); err != nil {
		return err
	}
	if r.PreserveMeaning == nil {
		v := true
		r.PreserveMeaning = &v
	}
	if _, err := humanizer.ParseTechniques(r.Techniques); err != nil {
		return err
	}
	return nil
}

// Options converts a validated request into pipeline options. seed is used when
// the request does not pin one.
func (r *HumanizeRequest) Options(seed uint64) (humanizer.Options, error) {
	techniques, err := humanizer.ParseTechniques(r.Techniques)
	if err != nil {
		return humanizer.Options{}, err
	}
	if r.Seed != nil {
		seed = *r.Seed
	}
	opts := humanizer.Options{
		Techniques: techniques,
		Seed:       seed,
	}
	if r.Intensity != nil {
		opts.Intensity = *r.Intensity
	}
	if r.PreserveMeaning != nil {
		opts.PreserveMeaning = *r.PreserveMeaning
	}
	return opts, nil
}

// UseCache reports whether the result cache may serve or store this request.
// The key covers only text, tier and intensity, so technique overrides, a
// pinned seed and preserve_meaning=false always bypass the cache.
func (r *HumanizeRequest) UseCache() bool {
	if r.Cache != nil && !*r.Cache {
		return false
	}
	if r.Seed != nil || (r.PreserveMeaning != nil && !*r.PreserveMeaning) {
		return false
	}
	return len(r.Techniques) == 0
}

// HumanizeResponse is the result of a single humanize call.
type HumanizeResponse struct {
	ID                string   `json:"id"`
	OriginalText      string   `json:"original_text"`
	HumanizedText     string   `json:"humanized_text"`
	Tier              string   `json:"tier"`
	Intensity         float64  `json:"intensity"`
	TechniquesApplied []string `json:"techniques_applied"`
	SimilarityScore   *float64 `json:"similarity_score"`
	// ProcessingTime is in seconds.
	ProcessingTime float64 `json:"processing_time"`
	Cached         bool    `json:"cached"`
}

// BatchHumanizeRequest humanizes several texts with the same settings.
type BatchHumanizeRequest struct {
	Texts     []string `json:"texts"`
	Tier      string   `json:"tier,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Intensity *float64 `json:"intensity,omitempty"`
	Seed      *uint64  `json:"seed,omitempty"`
}

// Validate fills unset fields from d and checks the batch size. Individual
// texts are validated per item so one bad text does not reject the batch.
func (r *BatchHumanizeRequest) Validate(d RequestDefaults, maxBatch int) error {
	if len(r.Texts) == 0 {
		return humanizer.InvalidParameter("texts", "cannot be empty")
	}
	if maxBatch > 0 && len(r.Texts) > maxBatch {
		return humanizer.InvalidParameter("texts", "at most %d texts per batch, got %d", maxBatch, len(r.Texts))
	}
	if r.Tier == "" {
		r.Tier = r.Mode
	}
	if r.Tier == "" {
		r.Tier = d.Tier
	}
	tier, err := humanizer.ParseTier(r.Tier)
	if err != nil {
		return err
	}
	r.Tier = string(tier)
	r.Mode = ""
	if r.Intensity == nil {
		v := d.Intensity
		r.Intensity = &v
	}
	return humanizer.ValidateIntensity(*r.Intensity)
}

// BatchResult pairs one input text with its output or error.
type BatchResult struct {
	Original  string `json:"original"`
	Humanized string `json:"humanized,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchHumanizeResponse keeps results in input order.
type BatchHumanizeResponse struct {
	Results        []BatchResult `json:"results"`
	TotalTexts     int           `json:"total_texts"`
	Failed         int           `json:"failed"`
	ProcessingTime float64       `json:"processing_time"`
	Tier           string        `json:"tier"`
}

// TechniqueInfo describes one technique in the catalogue.
type TechniqueInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Speed       string `json:"speed"`
}

// TechniquesResponse lists every technique.
type TechniquesResponse struct {
	Techniques []TechniqueInfo `json:"techniques"`
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status       string    `json:"status"`
	ModelsLoaded bool      `json:"models_loaded"`
	Cache        string    `json:"cache"`
	CacheOK      bool      `json:"cache_available"`
	Version      string    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
}

// StreamRequest is one websocket message from a client.
type StreamRequest struct {
	Text      string   `json:"text"`
	Intensity *float64 `json:"intensity,omitempty"`
}

// StreamResponse is one websocket message to a client.
type StreamResponse struct {
	ID        string    `json:"id,omitempty"`
	Humanized string    `json:"humanized,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
