package humanizer

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotoba/internal/embedding"
	"github.com/hyperjump/kotoba/internal/vector"
	"go.uber.org/zap"
)

const (
	// SimilarityThreshold is the minimum cosine similarity a mutated sentence must keep.
	SimilarityThreshold = 0.7
	// fallbackScale is applied to intensity for the human_patterns fallback.
	fallbackScale = 0.5
)

// Gate rejects sentence mutations that drift too far from the original meaning.
type Gate struct {
	embedder embedding.Embedder
	library  *Library
	logger   *zap.Logger
}

// NewGate returns a gate using embedder for similarity and library for the fallback.
func NewGate(embedder embedding.Embedder, library *Library, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{embedder: embedder, library: library, logger: logger}
}

// EmbedOriginals embeds every original sentence in one batch. It returns nil when
// the embedder fails or panics; Check then embeds originals one at a time.
func (g *Gate) EmbedOriginals(ctx context.Context, doc []Sentence) (vecs [][]float32) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("embedding original sentences panicked", zap.Any("panic", r))
			vecs = nil
		}
	}()
	texts := make([]string, len(doc))
	for i, s := range doc {
		texts[i] = s.Original
	}
	vecs, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		g.logger.Warn("embedding original sentences failed", zap.Error(err))
		return nil
	}
	return vecs
}

// Check returns the sentence to keep and whether the mutation was reverted.
// A reverted sentence is the original run once through human_patterns at half
// intensity; the fallback result is not checked again. Any embedding failure
// counts as a rejection.
func (g *Gate) Check(ctx context.Context, original string, originalVec []float32, mutated string, intensity float64, rng Rand) (string, bool) {
	if mutated == original {
		return mutated, false
	}
	var err error
	if originalVec == nil {
		originalVec, err = g.embed(ctx, original)
	}
	var similarity float64
	if err == nil {
		var mutatedVec []float32
		mutatedVec, err = g.embed(ctx, mutated)
		similarity = vector.Cosine(originalVec, mutatedVec)
	}
	if err == nil && similarity >= SimilarityThreshold {
		return mutated, false
	}
	if err != nil {
		g.logger.Debug("similarity check failed, reverting sentence", zap.Error(err))
	} else {
		g.logger.Debug("sentence drifted, reverting",
			zap.Float64("similarity", similarity),
			zap.String("sentence", original),
		)
	}
	return g.library.AddHumanPatterns(original, intensity*fallbackScale, rng), true
}

func (g *Gate) embed(ctx context.Context, text string) (vec []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			vec, err = nil, fmt.Errorf("embedder panicked: %v", r)
		}
	}()
	return g.embedder.Embed(ctx, text)
}

// Similarity returns the cosine similarity of the embeddings of a and b.
// An embedder panic is returned as an error.
func (g *Gate) Similarity(ctx context.Context, a, b string) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, err = 0, fmt.Errorf("embedder panicked: %v", r)
		}
	}()
	vecs, err := g.embedder.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("embedder returned %d vectors for 2 texts", len(vecs))
	}
	return vector.Cosine(vecs[0], vecs[1]), nil
}
