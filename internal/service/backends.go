package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/embedding"
	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/paraphrase"
	"github.com/hyperjump/kotoba/internal/postag"
	"go.uber.org/zap"
)

// buildBackends creates the providers of every model class from cfg. The
// returned closers release embedders and must be closed by the caller.
func buildBackends(cfg *config.Config, logger *zap.Logger) (map[humanizer.ModelClass]humanizer.Backends, []io.Closer, error) {
	tagger := postag.NewLexiconTagger()
	backends := make(map[humanizer.ModelClass]humanizer.Backends, 3)
	var closers []io.Closer

	for _, class := range humanizer.ModelClasses() {
		set, ok := cfg.Models.For(string(class))
		if !ok {
			return nil, closers, fmt.Errorf("no model set for class %q", class)
		}
		emb, err := newEmbedder(cfg.Embedding, set, logger)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("%s embedder: %w", class, err)
		}
		closers = append(closers, emb)

		para, err := newParaphraser(cfg.Paraphrase, set, logger)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("%s paraphraser: %w", class, err)
		}

		backends[class] = humanizer.Backends{
			Paraphraser: para,
			Embedder:    emb,
			Tagger:      tagger,
		}
		logger.Info("model backends ready",
			zap.String("class", string(class)),
			zap.String("embedding", set.Embedding),
			zap.Int("dimensions", emb.Dimensions()),
			zap.String("paraphrase_provider", cfg.Paraphrase.Provider),
		)
	}
	return backends, closers, nil
}

// newEmbedder falls back to the hash embedder when the ONNX model cannot be
// loaded, so the gate keeps working without a model on disk.
func newEmbedder(cfg config.EmbeddingConfig, set config.ModelSet, logger *zap.Logger) (embedding.Embedder, error) {
	var inner embedding.Embedder
	switch strings.ToLower(cfg.Provider) {
	case "onnx", "":
		onnx, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:  set.EmbeddingPath,
			Dimensions: set.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("onnx embedder unavailable, using mock embedder",
				zap.String("model_path", set.EmbeddingPath),
				zap.Error(err),
			)
			inner = embedding.NewMockEmbedder(set.Dimensions)
		} else {
			inner = onnx
		}
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, set.Embedding, set.Dimensions)
		if err != nil {
			return nil, err
		}
		inner = e
	case "mock":
		inner = embedding.NewMockEmbedder(set.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	cached, err := embedding.NewCachedEmbedder(inner, cfg.CacheSize)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	return cached, nil
}

func newParaphraser(cfg config.ParaphraseConfig, set config.ModelSet, logger *zap.Logger) (paraphrase.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return paraphrase.NewOpenAIProvider(paraphrase.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   set.Paraphrase,
			Timeout: cfg.Timeout,
		}, logger)
	case "none", "":
		return paraphrase.Unavailable{}, nil
	}
	return nil, fmt.Errorf("unknown paraphrase provider %q", cfg.Provider)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
