// Package ollama implements pkg/summarizer against Ollama's /api/chat.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/memoria/pkg/summarizer"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "gemma3"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type Summarizer struct {
	baseURL    string
	model      string
	options    chatOptions
	httpClient *http.Client
}

func New(cfg Config) *Summarizer {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &Summarizer{
		baseURL: baseURL,
		model:   model,
		options: chatOptions{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.MaxTokens,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *Summarizer) Summarize(ctx context.Context, excerpts []string, kind summarizer.Kind) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "user", Content: summarizer.Prompt(excerpts, kind)},
		},
		Stream:  false,
		Options: s.options,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", summarizer.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama status %d: %s", summarizer.ErrUnavailable, resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %v", summarizer.ErrUnavailable, err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("%w: ollama error: %s", summarizer.ErrUnavailable, response.Error)
	}

	text := strings.TrimSpace(response.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty summary", summarizer.ErrUnavailable)
	}
	return text, nil
}

var _ summarizer.Summarizer = (*Summarizer)(nil)
