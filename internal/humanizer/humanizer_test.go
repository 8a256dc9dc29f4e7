package humanizer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kotoba/internal/embedding"
	"go.uber.org/zap"
)

const sample = "Artificial intelligence is transforming many industries. It is important to note that the results are good. " +
	"Companies do not always understand the technology, and they are often slow to adopt it. " +
	"Furthermore, the cost of training large models is significant. In conclusion, the field will keep growing."

func newTestHumanizer(p *stubParaphraser, obs Observer) *Humanizer {
	backends := map[ModelClass]Backends{}
	for _, class := range ModelClasses() {
		b := Backends{Embedder: embedding.NewMockEmbedder(256)}
		if p != nil {
			b.Paraphraser = p
		}
		backends[class] = b
	}
	return New(DefaultTiers(), backends, WithLogger(zap.NewNop()), WithObserver(obs))
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\u200b", "")
	return strings.Join(strings.Fields(s), " ")
}

func TestHumanize_InvalidParameters(t *testing.T) {
	h := newTestHumanizer(nil, nil)
	ctx := context.Background()
	if _, err := h.Humanize(ctx, sample, "turbo", Options{Intensity: 0.5}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("unknown tier: err = %v", err)
	}
	if _, err := h.Humanize(ctx, sample, TierFast, Options{Intensity: 1.5}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("intensity: err = %v", err)
	}
	if _, err := h.Humanize(ctx, sample, TierFast, Options{Intensity: 0.5, Techniques: []Technique{Technique(12)}}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("technique: err = %v", err)
	}
}

func TestHumanize_EmptyText(t *testing.T) {
	got, err := newTestHumanizer(nil, nil).Humanize(context.Background(), "   ", TierQuality, Options{Intensity: 0.9})
	if err != nil || got != "" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestHumanize_DeterministicWithSeed(t *testing.T) {
	p := &stubParaphraser{out: "Many industries are being transformed by artificial intelligence."}
	h := newTestHumanizer(p, nil)
	ctx := context.Background()
	for _, tier := range TierNames() {
		opts := Options{Intensity: 0.9, PreserveMeaning: true, Seed: 42}
		a, err := h.Humanize(ctx, sample, tier, opts)
		if err != nil {
			t.Fatal(err)
		}
		b, err := h.Humanize(ctx, sample, tier, opts)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("%s: same seed gave different output:\n%q\n%q", tier, a, b)
		}
	}
}

func TestHumanize_ZeroIntensityKeepsWords(t *testing.T) {
	p := &stubParaphraser{out: "something else entirely"}
	h := newTestHumanizer(p, nil)
	for seed := uint64(0); seed < 10; seed++ {
		for _, tier := range TierNames() {
			got, err := h.Humanize(context.Background(), sample, tier, Options{Intensity: 0, PreserveMeaning: true, Seed: seed})
			if err != nil {
				t.Fatal(err)
			}
			if normalize(got) != normalize(sample) {
				t.Errorf("%s seed %d: text changed at intensity 0:\n%q", tier, seed, got)
			}
		}
	}
	if p.calls != 0 {
		t.Errorf("paraphraser called %d times", p.calls)
	}
}

func TestHumanize_ZeroIntensityIsIdentity(t *testing.T) {
	h := newTestHumanizer(nil, nil)
	tests := []struct {
		name string
		text string
	}{
		{"two sentences", "The cat sat on the mat. It was a sunny day."},
		{"single sentence", "Nothing happened."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(0); seed < 5; seed++ {
				got, err := h.Humanize(context.Background(), tt.text, TierFast, Options{Intensity: 0, Seed: seed})
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.text {
					t.Errorf("seed %d: got %q, want %q", seed, got, tt.text)
				}
			}
		})
	}
}

func TestHumanize_OverrideDoesNotLeak(t *testing.T) {
	p := &stubParaphraser{out: "Rewritten."}
	h := newTestHumanizer(p, nil)
	ctx := context.Background()

	_, err := h.Humanize(ctx, sample, TierQuality, Options{Intensity: 1, Techniques: []Technique{HumanPatterns}})
	if err != nil {
		t.Fatal(err)
	}
	if p.calls != 0 {
		t.Errorf("override excluded paraphrasing but provider was called %d times", p.calls)
	}
	tier, _ := h.Tier(TierQuality)
	if !reflect.DeepEqual(tier.Techniques, AllTechniques()) {
		t.Errorf("tier techniques mutated: %v", tier.Techniques)
	}
	got := h.EffectiveTechniques(TierQuality, Options{Techniques: []Technique{HumanPatterns, SemanticParaphrasing}})
	if !reflect.DeepEqual(got, []Technique{SemanticParaphrasing, HumanPatterns}) {
		t.Errorf("EffectiveTechniques = %v", got)
	}
}

func TestHumanize_PanickingProviderDegradesSentences(t *testing.T) {
	obs := &countingObserver{}
	p := &stubParaphraser{panics: true}
	h := newTestHumanizer(p, obs)
	got, err := h.Humanize(context.Background(), sample, TierBalanced, Options{Intensity: 1, PreserveMeaning: true, Seed: 7})
	if err != nil {
		t.Fatalf("Humanize: %v", err)
	}
	n := len(SplitSentences(sample))
	if obs.degraded != n {
		t.Errorf("degraded = %d, want %d", obs.degraded, n)
	}
	if normalize(got) != normalize(sample) {
		t.Errorf("degraded sentences should be the originals, got %q", got)
	}
}

func TestHumanize_PanickingEmbedderIsContained(t *testing.T) {
	backends := map[ModelClass]Backends{}
	for _, class := range ModelClasses() {
		backends[class] = Backends{
			Embedder:    &mapEmbedder{panics: true},
			Paraphraser: &stubParaphraser{out: "Many industries are changing because of AI."},
		}
	}
	obs := &countingObserver{}
	h := New(DefaultTiers(), backends, WithLogger(zap.NewNop()), WithObserver(obs))
	ctx := context.Background()

	var got string
	for _, intensity := range []float64{0.5, 1} {
		var err error
		got, err = h.Humanize(ctx, sample, TierBalanced, Options{Intensity: intensity, PreserveMeaning: true, Seed: 11})
		if err != nil {
			t.Fatalf("intensity %.1f: %v", intensity, err)
		}
		if strings.TrimSpace(got) == "" {
			t.Errorf("intensity %.1f: expected text back", intensity)
		}
	}
	// At full intensity every sentence is paraphrased and none can be verified.
	if strings.Contains(got, "because of AI") {
		t.Errorf("unverified paraphrase survived the gate: %q", got)
	}
	if obs.reverted < len(SplitSentences(sample)) {
		t.Errorf("reverted = %d", obs.reverted)
	}
	if obs.degraded != 0 {
		t.Errorf("degraded = %d, embedder faults should revert instead", obs.degraded)
	}
	if _, ok, err := h.Similarity(ctx, TierBalanced, sample, got); err == nil || ok {
		t.Errorf("Similarity ok = %v err = %v, want error", ok, err)
	}
}

func TestHumanize_GateRevertsDrift(t *testing.T) {
	drift := "Purple elephants quietly dance beneath neon rain clouds."
	ctx := context.Background()

	obs := &countingObserver{}
	h := newTestHumanizer(&stubParaphraser{out: drift}, obs)
	got, err := h.Humanize(ctx, sample, TierBalanced, Options{Intensity: 1, PreserveMeaning: true, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "elephants") {
		t.Errorf("drifted paraphrase survived the gate: %q", got)
	}
	if obs.reverted != len(SplitSentences(sample)) {
		t.Errorf("reverted = %d", obs.reverted)
	}

	h = newTestHumanizer(&stubParaphraser{out: drift}, nil)
	got, err = h.Humanize(ctx, sample, TierBalanced, Options{Intensity: 1, PreserveMeaning: false, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "elephants") {
		t.Errorf("without preserve_meaning the paraphrase should be kept: %q", got)
	}
}

func TestHumanize_FastTierNeverGates(t *testing.T) {
	obs := &countingObserver{}
	h := newTestHumanizer(&stubParaphraser{out: "x"}, obs)
	if _, err := h.Humanize(context.Background(), sample, TierFast, Options{Intensity: 1, PreserveMeaning: true}); err != nil {
		t.Fatal(err)
	}
	if obs.reverted != 0 {
		t.Errorf("fast tier reverted %d sentences", obs.reverted)
	}
	if _, ok, _ := h.Similarity(context.Background(), TierFast, "a", "b"); ok {
		t.Error("fast tier should not report similarity")
	}
}

func TestHumanize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestHumanizer(nil, nil).Humanize(ctx, sample, TierFast, Options{Intensity: 0.5})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHumanize_Similarity(t *testing.T) {
	h := newTestHumanizer(nil, nil)
	score, ok, err := h.Similarity(context.Background(), TierQuality, sample, sample)
	if err != nil || !ok || score < 0.999 {
		t.Errorf("score = %f ok = %v err = %v", score, ok, err)
	}
}
