package paraphrase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = "Paraphrase the user's sentence. Keep its meaning, change the wording. " +
	"Reply with the paraphrased sentence only."

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIProvider paraphrases through the chat completions API.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIProvider creates a provider for cfg.Model.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, errors.New("paraphrase model name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Paraphrase sends text to the model and returns the first choice.
func (p *OpenAIProvider) Paraphrase(ctx context.Context, text string, temperature float64) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "paraphrase: " + text},
		},
		Temperature: float32(temperature),
		TopP:        0.9,
		MaxTokens:   2*len(strings.Fields(text)) + 16,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	p.logger.Debug("paraphrased sentence",
		zap.String("model", p.model),
		zap.Int("input_len", len(text)),
		zap.Int("output_len", len(out)),
	)
	return out, nil
}
