// Package humanizer rewrites machine-sounding text into more varied, human-like
// prose. A document is split into sentences, each sentence runs through the
// tier's techniques in canonical order (optionally guarded by a semantic
// similarity gate), and the results are regrouped into paragraphs before two
// document-wide passes.
package humanizer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hyperjump/kotoba/internal/embedding"
	"github.com/hyperjump/kotoba/internal/paraphrase"
	"github.com/hyperjump/kotoba/internal/postag"
	"go.uber.org/zap"
)

// Backends are the model-backed providers of one model class. Nil fields are allowed:
// a nil Paraphraser disables paraphrasing and a nil Embedder disables the gate.
type Backends struct {
	Paraphraser paraphrase.Provider
	Embedder    embedding.Embedder
	Tagger      postag.Tagger
}

// Options are per-call settings. Techniques, when non-empty, replace the tier's
// techniques for this call only.
type Options struct {
	Intensity       float64
	PreserveMeaning bool
	Techniques      []Technique
	Seed            uint64
}

// Observer receives pipeline events, e.g. for metrics.
type Observer interface {
	SentenceReverted(tier TierName)
	SentenceDegraded(tier TierName)
}

type nopObserver struct{}

func (nopObserver) SentenceReverted(TierName) {}
func (nopObserver) SentenceDegraded(TierName) {}

type pipeline struct {
	tier    Tier
	library *Library
	gate    *Gate
}

// Humanizer runs the pipeline. It holds no per-request state and is safe for
// concurrent use as long as its backends are.
type Humanizer struct {
	pipelines map[TierName]*pipeline
	patterns  *PatternBank
	observer  Observer
	logger    *zap.Logger
}

// Option configures a Humanizer.
type Option func(*Humanizer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Humanizer) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(h *Humanizer) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithPatterns replaces the built-in pattern bank.
func WithPatterns(p *PatternBank) Option {
	return func(h *Humanizer) {
		if p != nil {
			h.patterns = p
		}
	}
}

// New builds a Humanizer for tiers, wiring each tier to the backends of its model class.
func New(tiers []Tier, backends map[ModelClass]Backends, opts ...Option) *Humanizer {
	h := &Humanizer{
		pipelines: make(map[TierName]*pipeline, len(tiers)),
		patterns:  DefaultPatterns(),
		observer:  nopObserver{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	for _, t := range tiers {
		t.Techniques = Canonical(t.Techniques)
		b := backends[t.ModelClass]
		lib := NewLibrary(h.patterns, b.Paraphraser, b.Tagger, h.logger)
		p := &pipeline{tier: t, library: lib}
		if t.GateEnabled && b.Embedder != nil {
			p.gate = NewGate(b.Embedder, lib, h.logger)
		}
		h.pipelines[t.Name] = p
	}
	return h
}

// Tier returns a copy of the named tier.
func (h *Humanizer) Tier(name TierName) (Tier, bool) {
	p, ok := h.pipelines[name]
	if !ok {
		return Tier{}, false
	}
	t := p.tier
	t.Techniques = slices.Clone(t.Techniques)
	return t, true
}

// EffectiveTechniques returns the techniques a call with opts would run on tier.
func (h *Humanizer) EffectiveTechniques(name TierName, opts Options) []Technique {
	if len(opts.Techniques) > 0 {
		return Canonical(opts.Techniques)
	}
	if t, ok := h.Tier(name); ok {
		return t.Techniques
	}
	return nil
}

// Humanize rewrites text using the named tier. It returns an error only for
// invalid parameters or a cancelled context; sentence-level faults are absorbed.
func (h *Humanizer) Humanize(ctx context.Context, text string, name TierName, opts Options) (string, error) {
	p, ok := h.pipelines[name]
	if !ok {
		return "", InvalidParameter("tier", "unknown tier %q", name)
	}
	if err := ValidateIntensity(opts.Intensity); err != nil {
		return "", err
	}
	for _, t := range opts.Techniques {
		if !t.valid() {
			return "", InvalidParameter("techniques", "unknown technique %d", int(t))
		}
	}

	start := time.Now()
	doc := NewDocument(text)
	if len(doc) == 0 {
		return "", nil
	}

	techniques := h.EffectiveTechniques(name, opts)
	rng := NewRand(opts.Seed)
	intensity := opts.Intensity

	gate := p.gate
	if !opts.PreserveMeaning {
		gate = nil
	}
	var originals [][]float32
	if gate != nil {
		originals = gate.EmbedOriginals(ctx, doc)
	}

	out := make([]string, len(doc))
	for i := range doc {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var vec []float32
		if originals != nil {
			vec = originals[i]
		}
		mutated, err := h.processSentence(ctx, p, gate, techniques, doc[i], vec, intensity, rng)
		if err != nil {
			h.observer.SentenceDegraded(name)
			h.logger.Warn("sentence degraded to original",
				zap.String("tier", string(name)),
				zap.Int("sentence", doc[i].Index),
				zap.Error(err),
			)
		}
		doc[i].Text = mutated
		out[i] = mutated
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result := ComposeParagraphs(out, intensity, rng)
	result = VaryPunctuation(result, rng)
	if intensity > 0.8 {
		result = AddInvisibleCharacters(result, invisibleRate, rng)
	}

	h.logger.Debug("humanized text",
		zap.String("tier", string(name)),
		zap.Float64("intensity", intensity),
		zap.Int("sentences", len(doc)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// processSentence runs the technique chain, the gate and the optional transition
// for one sentence. A technique error or panic yields the original sentence.
func (h *Humanizer) processSentence(ctx context.Context, p *pipeline, gate *Gate, techniques []Technique, s Sentence, originalVec []float32, intensity float64, rng Rand) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = s.Original
			err = fmt.Errorf("%w: %v", ErrMutationFailed, r)
		}
	}()

	text = s.Original
	for _, t := range techniques {
		next, applyErr := p.library.Apply(ctx, t, text, intensity, rng)
		if applyErr != nil {
			return s.Original, fmt.Errorf("%w: %s: %v", ErrMutationFailed, t, applyErr)
		}
		text = next
	}
	if strings.TrimSpace(text) == "" {
		return s.Original, fmt.Errorf("%w: empty result", ErrMutationFailed)
	}

	if gate != nil {
		var reverted bool
		text, reverted = gate.Check(ctx, s.Original, originalVec, text, intensity, rng)
		if reverted {
			h.observer.SentenceReverted(p.tier.Name)
		}
	}
	if p.tier.Transitions && s.Index > 0 {
		text = p.library.AddTransition(text, intensity, rng)
	}
	return text, nil
}

// Similarity scores the meaning preserved between two texts with the tier's
// embedder. ok is false when the tier has no gate embedder.
func (h *Humanizer) Similarity(ctx context.Context, name TierName, a, b string) (score float64, ok bool, err error) {
	p, found := h.pipelines[name]
	if !found || p.gate == nil {
		return 0, false, nil
	}
	score, err = p.gate.Similarity(ctx, a, b)
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}
