// Package paraphrase rewrites sentences with a language model.
package paraphrase

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by providers that have no model behind them.
var ErrUnavailable = errors.New("paraphrase provider unavailable")

// Provider returns a paraphrase of text sampled at the given temperature.
type Provider interface {
	Paraphrase(ctx context.Context, text string, temperature float64) (string, error)
}

// Unavailable is the provider used when no paraphrase model is configured.
type Unavailable struct{}

// Paraphrase always fails with ErrUnavailable.
func (Unavailable) Paraphrase(context.Context, string, float64) (string, error) {
	return "", ErrUnavailable
}
