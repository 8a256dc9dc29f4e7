package embedding

import (
	"context"
	"strings"
	"unicode"
)

// MockEmbedder is a deterministic bag-of-words embedder. Each lowercase word is
// hashed into a bucket, so texts sharing most words get a high cosine similarity
// and unrelated texts a low one. Used in tests and when no model is available.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a MockEmbedder with the given dimensions (384 if <= 0).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the normalized word-bucket histogram of text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, piece := range SplitWords(strings.ToLower(text)) {
		if !strings.ContainsFunc(piece, isWordRune) {
			continue
		}
		emb[HashString(piece)%e.dimensions]++
	}
	NormalizeL2Slice(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
