// Package openai implements pkg/embeddings' Embedder against any
// OpenAI-compatible /embeddings endpoint.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/memoria/pkg/embeddings"
	"github.com/papercomputeco/memoria/pkg/vector"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultBaseURL        = "https://api.openai.com/v1"
)

type EmbedderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

type Embedder struct {
	client openai.Client
	model  string
	dims   int
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Embedder{
		client: openai.NewClient(opts...),
		model:  model,
		dims:   cfg.Dimensions,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.model,
	}
	if e.dims > 0 {
		params.Dimensions = openai.Int(int64(e.dims))
	}

	res, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	src := res.Data[0].Embedding
	if e.dims > 0 && len(src) != e.dims {
		return nil, fmt.Errorf("%w: model %s returned %d dimensions, want %d", vector.ErrDimension, e.model, len(src), e.dims)
	}

	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out, nil
}

func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
