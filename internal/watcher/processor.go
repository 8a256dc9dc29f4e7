package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotoba/internal/models"
	"go.uber.org/zap"
)

// OutputSuffix marks files written by the processor.
const OutputSuffix = ".humanized.txt"

// ErrSkipped is returned by Process for files it deliberately leaves alone.
var ErrSkipped = errors.New("skipped")

// TextHumanizer humanizes one request. *service.Service satisfies it.
type TextHumanizer interface {
	Humanize(ctx context.Context, req *models.HumanizeRequest) (*models.HumanizeResponse, error)
}

// TextExtractor reads the prose of a document.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Processor turns inbox documents into humanized outbox files.
type Processor struct {
	humanizer TextHumanizer
	extractor TextExtractor
	outbox    string
	tier      string
	logger    *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithTier pins the tier used for every file. Empty uses the service default.
func WithTier(tier string) ProcessorOption {
	return func(p *Processor) { p.tier = tier }
}

// WithProcessorLogger sets the processor logger.
func WithProcessorLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor returns a processor writing into outbox.
func NewProcessor(h TextHumanizer, e TextExtractor, outbox string, opts ...ProcessorOption) *Processor {
	p := &Processor{
		humanizer: h,
		extractor: e,
		outbox:    filepath.Clean(outbox),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OutputPath returns where the humanized version of path is written.
func (p *Processor) OutputPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(p.outbox, name+OutputSuffix)
}

// Process extracts, humanizes and writes one file. Files produced by the
// processor, and files whose output is newer than the input, are skipped with
// ErrSkipped.
func (p *Processor) Process(ctx context.Context, path string) error {
	if strings.HasSuffix(strings.ToLower(path), OutputSuffix) {
		return ErrSkipped
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	out := p.OutputPath(path)
	if oi, err := os.Stat(out); err == nil && !oi.ModTime().Before(info.ModTime()) {
		p.logger.Debug("skipping up-to-date file", zap.String("path", path))
		return ErrSkipped
	}

	text, err := p.extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return ErrSkipped
	}
	noCache := false
	resp, err := p.humanizer.Humanize(ctx, &models.HumanizeRequest{
		Text:  text,
		Tier:  p.tier,
		Cache: &noCache,
	})
	if err != nil {
		return fmt.Errorf("humanize %s: %w", filepath.Base(path), err)
	}
	if err := writeAtomic(out, resp.HumanizedText); err != nil {
		return err
	}
	p.logger.Info("humanized file",
		zap.String("path", path),
		zap.String("output", out),
		zap.String("tier", resp.Tier),
		zap.Float64("processing_time", resp.ProcessingTime),
	)
	return nil
}

// Handle is a Watcher callback: it processes path and logs failures.
func (p *Processor) Handle(ctx context.Context) func(path string) {
	return func(path string) {
		if err := p.Process(ctx, path); err != nil && !errors.Is(err, ErrSkipped) {
			p.logger.Warn("failed to humanize file", zap.String("path", path), zap.Error(err))
		}
	}
}

func writeAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kotoba-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
