// Package cache decorates an Embedder with an in-memory LRU keyed by text.
// Rebuilds re-embed every summary and chunk of a namespace; the cache keeps
// that from hitting the embedding backend again for unchanged text.
package cache

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/papercomputeco/memoria/pkg/embeddings"
)

const DefaultSize = 1024

type Embedder struct {
	next  embeddings.Embedder
	cache *lru.Cache[string, []float32]
}

// New wraps next. size <= 0 selects DefaultSize.
func New(next embeddings.Embedder, size int) (*Embedder, error) {
	if size <= 0 {
		size = DefaultSize
	}

	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}

	return &Embedder{next: next, cache: c}, nil
}

// Embed returns a copy of the cached vector, or embeds and caches on miss.
// Failures are not cached.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return slices.Clone(v), nil
	}

	v, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Add(text, slices.Clone(v))
	return v, nil
}

// Len reports the number of cached vectors.
func (e *Embedder) Len() int {
	return e.cache.Len()
}

func (e *Embedder) Dimensions() int {
	if d, ok := e.next.(embeddings.Dimensioned); ok {
		return d.Dimensions()
	}
	return 0
}

func (e *Embedder) Close() error {
	e.cache.Purge()
	return e.next.Close()
}

var (
	_ embeddings.Embedder    = (*Embedder)(nil)
	_ embeddings.Dimensioned = (*Embedder)(nil)
)
