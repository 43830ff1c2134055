// Package llm is the streaming chat client used by "memoria chat". It speaks
// the OpenAI-compatible /chat/completions protocol with server-sent events,
// which LM Studio, Ollama, vLLM and OpenAI itself all serve.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/sse"
)

// ErrUnavailable wraps every failure to obtain a completion.
var ErrUnavailable = errors.New("chat backend unavailable")

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512

	// LLM responses can be slow
	defaultTimeout = 5 * time.Minute

	maxErrorBody = 4096
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:1234/v1".
	BaseURL string
	APIKey  string
	Model   string

	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// Transcript receives a verbatim copy of every streamed byte when set.
	Transcript io.Writer

	Logger *slog.Logger
}

// Client streams chat completions.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a Client. Zero generation parameters fall back to the
// chat defaults.
func NewClient(c Config) *Client {
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		config: c,
		http:   &http.Client{Timeout: c.Timeout},
		logger: log,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Stream sends messages and calls onToken with every content delta as it
// arrives. The returned response holds the full text. On error the partial
// text received so far is discarded.
func (c *Client) Stream(ctx context.Context, messages []Message, onToken func(string)) (*ChatResponse, error) {
	temperature := c.config.Temperature
	maxTokens := c.config.MaxTokens
	body, err := json.Marshal(ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Stream:      true,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	c.logger.Debug("sending chat request",
		"url", url,
		"model", c.config.Model,
		"message_count", len(messages),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return c.read(resp.Body, onToken)
}

func (c *Client) read(body io.Reader, onToken func(string)) (*ChatResponse, error) {
	var reader *sse.Reader
	if c.config.Transcript != nil {
		reader = sse.NewTeeReader(body, c.config.Transcript)
	} else {
		reader = sse.NewReader(body)
	}

	out := &ChatResponse{Model: c.config.Model}
	var content strings.Builder

	for {
		ev, err := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: reading stream: %w", ErrUnavailable, err)
		}
		if ev == nil || ev.Data == doneData {
			break
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			c.logger.Debug("failed to parse stream chunk", "error", err, "data", ev.Data)
			continue
		}

		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Usage != nil {
			out.Usage = chunk.Usage
		}
		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				if onToken != nil {
					onToken(choice.Delta.Content)
				}
			}
			if choice.FinishReason != nil {
				out.FinishReason = *choice.FinishReason
			}
		}
	}

	out.Content = content.String()
	return out, nil
}
