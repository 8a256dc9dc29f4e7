// Package service is the boundary between transports (HTTP, websocket, CLI,
// inbox watcher) and the humanize pipeline. It validates requests, consults
// the result cache and records metrics.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotoba/internal/cache"
	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/detector"
	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/metrics"
	"github.com/hyperjump/kotoba/internal/models"
	"go.uber.org/zap"
)

// ErrNotInitialized is returned by calls made before Initialize succeeds.
var ErrNotInitialized = errors.New("service not initialized")

// Service owns the humanizer, its backends and the result cache.
type Service struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	version  string
	backends map[humanizer.ModelClass]humanizer.Backends

	mu        sync.RWMutex
	humanizer *humanizer.Humanizer
	cache     cache.Cache
	closers   []io.Closer
}

// Option configures a Service.
type Option func(*Service)

// WithCache sets the result cache instead of building one from config.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBackends sets the model backends instead of building them from config.
func WithBackends(b map[humanizer.ModelClass]humanizer.Backends) Option {
	return func(s *Service) {
		s.backends = b
	}
}

// WithVersion sets the version reported by Health.
func WithVersion(v string) Option {
	return func(s *Service) {
		s.version = v
	}
}

// New creates a Service. It does no I/O; call Initialize before use.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{cfg: cfg, logger: logger, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads model backends, opens the cache and builds the pipeline.
// Calling it again after success is a no-op.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.humanizer != nil {
		return nil
	}
	start := time.Now()

	backends := s.backends
	if backends == nil {
		b, closers, err := buildBackends(s.cfg, s.logger)
		if err != nil {
			return fmt.Errorf("failed to build backends: %w", err)
		}
		backends = b
		s.closers = closers
	}
	if s.cache == nil {
		c, err := cache.New(ctx, s.cfg.Cache, s.logger)
		if err != nil {
			closeAll(s.closers)
			s.closers = nil
			return fmt.Errorf("failed to open cache: %w", err)
		}
		s.cache = c
	}

	opts := []humanizer.Option{humanizer.WithLogger(s.logger)}
	if s.metrics != nil {
		opts = append(opts, humanizer.WithObserver(s.metrics))
	}
	tiers := humanizer.DefaultTiers()
	for i := range tiers {
		tiers[i].DefaultIntensity = s.cfg.Humanizer.DefaultIntensity
	}
	s.humanizer = humanizer.New(tiers, backends, opts...)

	s.logger.Info("humanizer initialized",
		zap.String("cache", s.cache.Name()),
		zap.Bool("cache_available", s.cache.Available()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (s *Service) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.humanizer != nil
}

// Close releases the cache and model backends.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.cache = nil
	s.closers = nil
	s.humanizer = nil
	return errors.Join(errs...)
}

func (s *Service) pipeline() (*humanizer.Humanizer, cache.Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.humanizer == nil {
		return nil, nil, ErrNotInitialized
	}
	return s.humanizer, s.cache, nil
}

// tierLabel bounds the metric label set to known tiers.
func tierLabel(name string) string {
	if t, err := humanizer.ParseTier(name); err == nil {
		return string(t)
	}
	return "unknown"
}

func (s *Service) defaults() models.RequestDefaults {
	return models.RequestDefaults{
		Tier:          s.cfg.Humanizer.DefaultTier,
		Intensity:     s.cfg.Humanizer.DefaultIntensity,
		MaxTextLength: s.cfg.Humanizer.MaxTextLength,
	}
}

// Humanize validates req, serves it from the cache when possible and otherwise
// runs the pipeline and stores the result.
func (s *Service) Humanize(ctx context.Context, req *models.HumanizeRequest) (*models.HumanizeResponse, error) {
	start := time.Now()
	h, c, err := s.pipeline()
	if err != nil {
		return nil, err
	}
	if err := req.Validate(s.defaults()); err != nil {
		s.metrics.ObserveRequest(tierLabel(req.Tier), "invalid", time.Since(start))
		return nil, err
	}
	tier := humanizer.TierName(req.Tier)
	intensity := *req.Intensity

	useCache := req.UseCache()
	var key string
	if useCache {
		key = cache.Key(req.Text, req.Tier, intensity)
		if resp, ok := s.lookup(ctx, c, key); ok {
			resp.ID = uuid.NewString()
			resp.Cached = true
			resp.ProcessingTime = time.Since(start).Seconds()
			s.metrics.ObserveRequest(req.Tier, "ok", time.Since(start))
			s.logger.Info("cache hit", zap.String("tier", req.Tier))
			return resp, nil
		}
	}

	opts, err := req.Options(humanizer.RandomSeed())
	if err != nil {
		return nil, err
	}
	out, err := h.Humanize(ctx, req.Text, tier, opts)
	if err != nil {
		status := "error"
		if errors.Is(err, humanizer.ErrInvalidParameter) {
			status = "invalid"
		}
		s.metrics.ObserveRequest(req.Tier, status, time.Since(start))
		return nil, err
	}

	resp := &models.HumanizeResponse{
		ID:                uuid.NewString(),
		OriginalText:      req.Text,
		HumanizedText:     out,
		Tier:              req.Tier,
		Intensity:         intensity,
		TechniquesApplied: humanizer.TechniqueNames(h.EffectiveTechniques(tier, opts)),
	}
	if opts.PreserveMeaning && out != "" {
		score, ok, err := h.Similarity(ctx, tier, req.Text, out)
		if err != nil {
			s.logger.Warn("could not calculate similarity", zap.String("tier", req.Tier), zap.Error(err))
		} else if ok {
			resp.SimilarityScore = &score
		}
	}
	resp.ProcessingTime = time.Since(start).Seconds()

	if useCache {
		s.store(ctx, c, key, resp)
	}
	s.metrics.ObserveRequest(req.Tier, "ok", time.Since(start))
	s.logger.Info("humanized text",
		zap.String("tier", req.Tier),
		zap.Float64("intensity", intensity),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// lookup treats cache errors and undecodable entries as misses.
func (s *Service) lookup(ctx context.Context, c cache.Cache, key string) (*models.HumanizeResponse, bool) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("cache", c.Name()), zap.Error(err))
	}
	if err != nil || !ok {
		s.metrics.CacheLookup(false)
		return nil, false
	}
	var resp models.HumanizeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn("cache entry undecodable", zap.Error(err))
		s.metrics.CacheLookup(false)
		return nil, false
	}
	s.metrics.CacheLookup(true)
	return &resp, true
}

func (s *Service) store(ctx context.Context, c cache.Cache, key string, resp *models.HumanizeResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := c.Set(ctx, key, data, s.cfg.Cache.TTL); err != nil {
		s.logger.Warn("cache set failed", zap.String("cache", c.Name()), zap.Error(err))
	}
}

// Analyze scores text for machine-writing signals.
func (s *Service) Analyze(req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return detector.Analyze(req.Text), nil
}

// DetectAndHumanize analyzes text and humanizes it with settings chosen from
// the score.
func (s *Service) DetectAndHumanize(ctx context.Context, req *models.AnalyzeRequest) (*models.DetectResponse, error) {
	analysis, err := s.Analyze(req)
	if err != nil {
		return nil, err
	}
	settings := detector.AutoSettings(analysis.Score)
	preserve := true
	humanized, err := s.Humanize(ctx, &models.HumanizeRequest{
		Text:            req.Text,
		Tier:            settings.Tier,
		Intensity:       &settings.Intensity,
		PreserveMeaning: &preserve,
	})
	if err != nil {
		return nil, err
	}
	return &models.DetectResponse{
		Analysis:     analysis,
		Humanization: humanized,
		AutoSettings: settings,
	}, nil
}

// Techniques returns the technique catalogue in canonical order.
func (s *Service) Techniques() []models.TechniqueInfo {
	all := humanizer.AllTechniques()
	out := make([]models.TechniqueInfo, len(all))
	for i, t := range all {
		out[i] = models.TechniqueInfo{
			Name:        t.String(),
			Description: t.Description(),
			Speed:       string(t.Speed()),
		}
	}
	return out
}

// Health reports readiness, cache state and version.
func (s *Service) Health() models.HealthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := models.HealthResponse{
		Status:       "healthy",
		ModelsLoaded: s.humanizer != nil,
		Cache:        "none",
		Version:      s.version,
		Timestamp:    time.Now().UTC(),
	}
	if s.humanizer == nil {
		resp.Status = "initializing"
	}
	if s.cache != nil {
		resp.Cache = s.cache.Name()
		resp.CacheOK = s.cache.Available()
	}
	return resp
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}
