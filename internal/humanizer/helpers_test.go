package humanizer

import (
	"context"
	"errors"
	"sync"
)

// constRand returns the same draw forever; IntN always picks 0.
type constRand struct{ f float64 }

func (r constRand) Float64() float64 { return r.f }
func (r constRand) IntN(int) int     { return 0 }

// scriptedRand replays floats in order, then falls back to 0.99 (no trigger).
type scriptedRand struct {
	floats []float64
	next   int
}

func (r *scriptedRand) Float64() float64 {
	if r.next >= len(r.floats) {
		return 0.99
	}
	f := r.floats[r.next]
	r.next++
	return f
}

func (r *scriptedRand) IntN(int) int { return 0 }

type stubParaphraser struct {
	mu          sync.Mutex
	out         string
	err         error
	panics      bool
	calls       int
	temperature float64
}

func (p *stubParaphraser) Paraphrase(_ context.Context, text string, temperature float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.temperature = temperature
	if p.panics {
		panic("model exploded")
	}
	if p.err != nil {
		return "", p.err
	}
	return p.out, nil
}

// mapEmbedder returns fixed vectors per text; unknown texts get [0 1].
// With short set, EmbedBatch drops the last vector.
type mapEmbedder struct {
	vectors map[string][]float32
	fail    bool
	panics  bool
	short   bool
	calls   int
}

func (e *mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.panics {
		panic("embedder exploded")
	}
	if e.fail {
		return nil, errors.New("embedder down")
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 1}, nil
}

func (e *mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *mapEmbedder) Dimensions() int { return 2 }
func (e *mapEmbedder) Close() error    { return nil }

type countingObserver struct {
	mu       sync.Mutex
	reverted int
	degraded int
}

func (o *countingObserver) SentenceReverted(TierName) {
	o.mu.Lock()
	o.reverted++
	o.mu.Unlock()
}

func (o *countingObserver) SentenceDegraded(TierName) {
	o.mu.Lock()
	o.degraded++
	o.mu.Unlock()
}
