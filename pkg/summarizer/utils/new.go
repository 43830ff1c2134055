// Package summarizerutils builds a Summarizer from configuration.
package summarizerutils

import (
	"fmt"

	"github.com/papercomputeco/memoria/pkg/summarizer"
	"github.com/papercomputeco/memoria/pkg/summarizer/ollama"
	"github.com/papercomputeco/memoria/pkg/summarizer/openai"
)

type NewSummarizerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Temperature  float64
	MaxTokens    uint
}

// NewSummarizer returns nil for the "none" provider; rollups then never fire.
func NewSummarizer(o *NewSummarizerOpts) (summarizer.Summarizer, error) {
	switch o.ProviderType {
	case "none":
		return nil, nil
	case "", "openai", "lmstudio":
		return openai.New(openai.Config{
			BaseURL:     o.TargetURL,
			APIKey:      o.APIKey,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   int(o.MaxTokens),
		}), nil
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL:     o.TargetURL,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   int(o.MaxTokens),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %s", o.ProviderType)
	}
}
