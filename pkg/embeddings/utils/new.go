// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/memoria/pkg/embeddings"
	"github.com/papercomputeco/memoria/pkg/embeddings/cache"
	"github.com/papercomputeco/memoria/pkg/embeddings/hash"
	"github.com/papercomputeco/memoria/pkg/embeddings/ollama"
	"github.com/papercomputeco/memoria/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint

	// CacheSize wraps learned providers in an LRU cache when non-zero.
	CacheSize uint
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case "", "hash":
		// Hashing is cheaper than a cache lookup.
		return hash.NewEmbedder(int(o.Dimensions)), nil
	case "ollama":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: int(o.Dimensions),
		})
	case "openai":
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: int(o.Dimensions),
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheSize == 0 {
		return e, nil
	}
	return cache.New(e, int(o.CacheSize))
}
