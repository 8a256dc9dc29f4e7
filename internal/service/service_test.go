package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotoba/internal/cache"
	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/embedding"
	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/metrics"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const sample = "It is important to note that the system is fast. Furthermore the design is simple and clean. " +
	"Moreover the team does not need to change the existing tools. In conclusion the approach is sound."

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Provider = "mock"
	cfg.Cache.Backend = "none"
	return cfg
}

func mockBackends() map[humanizer.ModelClass]humanizer.Backends {
	b := make(map[humanizer.ModelClass]humanizer.Backends)
	for _, class := range humanizer.ModelClasses() {
		b[class] = humanizer.Backends{Embedder: embedding.NewMockEmbedder(128)}
	}
	return b
}

func newTestService(t *testing.T, opts ...Option) (*Service, *cache.Memory) {
	t.Helper()
	mem := cache.NewMemory(100, time.Hour)
	opts = append([]Option{WithBackends(mockBackends()), WithCache(mem), WithVersion("test")}, opts...)
	s := New(testConfig(), zap.NewNop(), opts...)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mem
}

func ptr[T any](v T) *T { return &v }

func TestService_NotInitialized(t *testing.T) {
	s := New(testConfig(), nil)
	if s.Initialized() {
		t.Fatal("new service should not be initialized")
	}
	if _, err := s.Humanize(context.Background(), &models.HumanizeRequest{Text: sample}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Humanize err = %v, want ErrNotInitialized", err)
	}
	if _, err := s.HumanizeBatch(context.Background(), &models.BatchHumanizeRequest{Texts: []string{sample}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("HumanizeBatch err = %v", err)
	}
	if h := s.Health(); h.ModelsLoaded || h.Status != "initializing" {
		t.Errorf("health = %+v", h)
	}
}

func TestService_InitializeFromConfig(t *testing.T) {
	s := New(testConfig(), zap.NewNop())
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if !s.Initialized() {
		t.Fatal("expected initialized")
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Errorf("second Initialize: %v", err)
	}
	h := s.Health()
	if !h.ModelsLoaded || h.Cache != "none" || h.CacheOK {
		t.Errorf("health = %+v", h)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if s.Initialized() {
		t.Error("closed service should not report initialized")
	}
}

func TestService_InitializeUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Paraphrase.Provider = "gpt-9000"
	if err := New(cfg, nil).Initialize(context.Background()); err == nil {
		t.Error("expected error for unknown paraphrase provider")
	}
	cfg = testConfig()
	cfg.Cache.Backend = "floppy"
	if err := New(cfg, nil).Initialize(context.Background()); err == nil {
		t.Error("expected error for unknown cache backend")
	}
}

func TestService_Humanize(t *testing.T) {
	s, _ := newTestService(t)
	resp, err := s.Humanize(context.Background(), &models.HumanizeRequest{
		Text:      sample,
		Tier:      "balanced",
		Intensity: ptr(0.6),
		Seed:      ptr(uint64(11)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" || resp.Cached || resp.Tier != "balanced" || resp.Intensity != 0.6 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.OriginalText != sample || resp.HumanizedText == "" {
		t.Errorf("texts: %q -> %q", resp.OriginalText, resp.HumanizedText)
	}
	want := []string{"semantic_paraphrasing", "sentence_variation", "human_patterns"}
	if len(resp.TechniquesApplied) != len(want) {
		t.Fatalf("techniques = %v", resp.TechniquesApplied)
	}
	for i := range want {
		if resp.TechniquesApplied[i] != want[i] {
			t.Errorf("techniques[%d] = %s, want %s", i, resp.TechniquesApplied[i], want[i])
		}
	}
	if resp.SimilarityScore == nil {
		t.Error("balanced tier with preserve_meaning should report a similarity score")
	}

	fast, err := s.Humanize(context.Background(), &models.HumanizeRequest{Text: sample, Tier: "fast"})
	if err != nil {
		t.Fatal(err)
	}
	if fast.SimilarityScore != nil {
		t.Error("fast tier has no gate and should not report similarity")
	}
}

func TestService_HumanizeInvalid(t *testing.T) {
	s, _ := newTestService(t)
	for _, req := range []*models.HumanizeRequest{
		{Text: strings.Repeat("a", testConfig().Humanizer.MaxTextLength+1)},
		{Text: sample, Tier: "turbo"},
		{Text: sample, Intensity: ptr(2.0)},
		{Text: sample, Techniques: []string{"sarcasm"}},
	} {
		if _, err := s.Humanize(context.Background(), req); !errors.Is(err, humanizer.ErrInvalidParameter) {
			t.Errorf("request %+v: err = %v", req, err)
		}
	}
}

func TestService_HumanizeEmptyText(t *testing.T) {
	s, mem := newTestService(t)
	for _, text := range []string{"", " \n\t "} {
		resp, err := s.Humanize(context.Background(), &models.HumanizeRequest{Text: text, Tier: "quality", Intensity: ptr(0.9)})
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if resp.HumanizedText != "" || resp.OriginalText != text || resp.SimilarityScore != nil {
			t.Errorf("%q: resp = %+v", text, resp)
		}
	}
	if mem.Len() != 2 {
		t.Errorf("entries = %d", mem.Len())
	}
}

func TestService_HumanizeCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, mem := newTestService(t, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	first, err := s.Humanize(ctx, &models.HumanizeRequest{Text: sample, Tier: "fast", Intensity: ptr(0.5)})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || mem.Len() != 1 {
		t.Fatalf("first call: cached=%v entries=%d", first.Cached, mem.Len())
	}
	second, err := s.Humanize(ctx, &models.HumanizeRequest{Text: sample, Tier: "fast", Intensity: ptr(0.5)})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.HumanizedText != first.HumanizedText {
		t.Errorf("second call should be served from cache: %+v", second)
	}
	if second.ID == first.ID {
		t.Error("cached responses get a fresh id")
	}

	third, err := s.Humanize(ctx, &models.HumanizeRequest{Text: sample, Tier: "fast", Intensity: ptr(0.5), Cache: ptr(false)})
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached {
		t.Error("cache=false must bypass the cache")
	}

	seeded, err := s.Humanize(ctx, &models.HumanizeRequest{Text: sample, Tier: "fast", Intensity: ptr(0.5), Seed: ptr(uint64(3))})
	if err != nil {
		t.Fatal(err)
	}
	if seeded.Cached || mem.Len() != 1 {
		t.Errorf("a pinned seed must bypass the cache: cached=%v entries=%d", seeded.Cached, mem.Len())
	}

	override, err := s.Humanize(ctx, &models.HumanizeRequest{Text: sample, Tier: "fast", Intensity: ptr(0.5), Techniques: []string{"human_patterns"}})
	if err != nil {
		t.Fatal(err)
	}
	if override.Cached || mem.Len() != 1 {
		t.Errorf("technique override must bypass the cache: cached=%v entries=%d", override.Cached, mem.Len())
	}
	if len(override.TechniquesApplied) != 1 || override.TechniquesApplied[0] != "human_patterns" {
		t.Errorf("override techniques = %v", override.TechniquesApplied)
	}
}

// markerEmbedder panics on any text containing marker.
type markerEmbedder struct {
	*embedding.MockEmbedder
	marker string
}

func (m markerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, m.marker) {
		panic("embedder exploded on " + m.marker)
	}
	return m.MockEmbedder.Embed(ctx, text)
}

func (m markerEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestService_HumanizeBatch(t *testing.T) {
	backends := make(map[humanizer.ModelClass]humanizer.Backends)
	for _, class := range humanizer.ModelClasses() {
		backends[class] = humanizer.Backends{Embedder: markerEmbedder{embedding.NewMockEmbedder(128), "Zanzibar"}}
	}
	s, _ := newTestService(t, WithBackends(backends))
	ctx := context.Background()
	texts := []string{
		sample,
		strings.Repeat("Far too long. ", testConfig().Humanizer.MaxTextLength/10),
		"Short text here. Another sentence follows it.",
		"The ferry to Zanzibar leaves at noon. It is usually late.",
		"",
	}

	resp, err := s.HumanizeBatch(ctx, &models.BatchHumanizeRequest{
		Texts:     texts,
		Tier:      "balanced",
		Intensity: ptr(0.8),
		Seed:      ptr(uint64(5)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalTexts != len(texts) || len(resp.Results) != len(texts) || resp.Failed != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if r := resp.Results[1]; r.Error == "" || r.Humanized != "" {
		t.Errorf("oversized text should fail on its own: %+v", r)
	}
	if r := resp.Results[3]; r.Error != "" || r.Humanized == "" {
		t.Errorf("embedder panic should degrade the item, not fail it: %+v", r)
	}
	if r := resp.Results[4]; r.Error != "" || r.Humanized != "" {
		t.Errorf("empty text should humanize to empty: %+v", r)
	}
	for _, i := range []int{0, 2} {
		r := resp.Results[i]
		if r.Original != texts[i] || r.Error != "" {
			t.Errorf("result %d = %+v", i, r)
		}
		single, err := s.Humanize(ctx, &models.HumanizeRequest{
			Text:      texts[i],
			Tier:      "balanced",
			Intensity: ptr(0.8),
			Seed:      ptr(uint64(5)),
		})
		if err != nil {
			t.Fatal(err)
		}
		if single.HumanizedText != r.Humanized {
			t.Errorf("batch item %d differs from single call:\n%q\n%q", i, r.Humanized, single.HumanizedText)
		}
	}

	if _, err := s.HumanizeBatch(ctx, &models.BatchHumanizeRequest{}); !errors.Is(err, humanizer.ErrInvalidParameter) {
		t.Errorf("empty batch err = %v", err)
	}
}

func TestService_HumanizeItemRecoversPanic(t *testing.T) {
	s, _ := newTestService(t)
	// A nil pipeline panics inside Humanize.
	res := s.humanizeItem(context.Background(), nil, sample, humanizer.TierFast, humanizer.Options{Intensity: 0.5})
	if res.Original != sample || res.Humanized != "" || !strings.Contains(res.Error, "internal error") {
		t.Errorf("res = %+v", res)
	}
}

func TestService_DetectAndHumanize(t *testing.T) {
	s, _ := newTestService(t)
	resp, err := s.DetectAndHumanize(context.Background(), &models.AnalyzeRequest{Text: sample})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Analysis.Score != 100 {
		t.Errorf("score = %d", resp.Analysis.Score)
	}
	if resp.AutoSettings.Tier != "quality" || resp.AutoSettings.Intensity != 0.9 {
		t.Errorf("auto settings = %+v", resp.AutoSettings)
	}
	if resp.Humanization.Tier != "quality" || resp.Humanization.Intensity != 0.9 {
		t.Errorf("humanization = %+v", resp.Humanization)
	}

	if _, err := s.Analyze(&models.AnalyzeRequest{}); !errors.Is(err, humanizer.ErrInvalidParameter) {
		t.Errorf("empty analyze err = %v", err)
	}
}

func TestService_Techniques(t *testing.T) {
	s := New(testConfig(), nil)
	got := s.Techniques()
	if len(got) != 5 {
		t.Fatalf("got %d techniques", len(got))
	}
	if got[0].Name != "semantic_paraphrasing" || got[0].Speed != "slow" {
		t.Errorf("first = %+v", got[0])
	}
	if got[4].Name != "human_patterns" || got[4].Description == "" {
		t.Errorf("last = %+v", got[4])
	}
}
