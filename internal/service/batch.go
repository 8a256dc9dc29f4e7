package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HumanizeBatch humanizes every text of req on a bounded worker pool. Results
// keep input order; a failing text is reported in its own result and never
// fails the others. Every item uses the same seed, so item i equals a single
// Humanize call on texts[i] with that seed.
func (s *Service) HumanizeBatch(ctx context.Context, req *models.BatchHumanizeRequest) (*models.BatchHumanizeResponse, error) {
	start := time.Now()
	h, _, err := s.pipeline()
	if err != nil {
		return nil, err
	}
	if err := req.Validate(s.defaults(), s.cfg.Humanizer.MaxBatchSize); err != nil {
		return nil, err
	}
	seed := humanizer.RandomSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	tier := humanizer.TierName(req.Tier)
	opts := humanizer.Options{
		Intensity:       *req.Intensity,
		PreserveMeaning: true,
		Seed:            seed,
	}

	workers := s.cfg.Humanizer.BatchWorkers
	if workers <= 0 {
		workers = 1
	}
	results := make([]models.BatchResult, len(req.Texts))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, text := range req.Texts {
		g.Go(func() error {
			results[i] = s.humanizeItem(ctx, h, text, tier, opts)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			s.metrics.BatchItemFailed(req.Tier)
		}
	}
	s.logger.Info("batch processed",
		zap.String("tier", req.Tier),
		zap.Int("texts", len(req.Texts)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &models.BatchHumanizeResponse{
		Results:        results,
		TotalTexts:     len(req.Texts),
		Failed:         failed,
		ProcessingTime: time.Since(start).Seconds(),
		Tier:           req.Tier,
	}, nil
}

func (s *Service) humanizeItem(ctx context.Context, h *humanizer.Humanizer, text string, tier humanizer.TierName, opts humanizer.Options) (res models.BatchResult) {
	res.Original = text
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("batch item panicked", zap.Any("panic", r))
			res.Humanized = ""
			res.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	if limit := s.cfg.Humanizer.MaxTextLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		res.Error = humanizer.InvalidParameter("text", "longer than %d characters", limit).Error()
		return res
	}
	out, err := h.Humanize(ctx, text, tier, opts)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Humanized = out
	return res
}
