// Package openai implements pkg/summarizer against any OpenAI-compatible
// /chat/completions endpoint (OpenAI, LM Studio, vLLM, ...).
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/memoria/pkg/summarizer"
)

const (
	DefaultModel       = "local-model"
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 250
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

type Summarizer struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func New(cfg Config) *Summarizer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// Local servers ignore the key but the client insists on one.
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}
	opts = append(opts, option.WithAPIKey(apiKey))

	return &Summarizer{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, excerpts []string, kind summarizer.Kind) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(summarizer.Prompt(excerpts, kind)),
		},
		Temperature: openai.Float(s.temperature),
		MaxTokens:   openai.Int(int64(s.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", summarizer.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", summarizer.ErrUnavailable)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty summary", summarizer.ErrUnavailable)
	}
	return text, nil
}

var _ summarizer.Summarizer = (*Summarizer)(nil)
