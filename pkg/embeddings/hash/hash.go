// Package hash implements a deterministic, model free Embedder. Vectors are
// derived from SHA-256 digests of the text with every byte scaled into [0,1].
// Identical text always maps to the identical vector, which keeps a namespace
// searchable with no embedding backend at all, at the cost of carrying no
// semantic similarity.
package hash

import (
	"context"
	"crypto/sha256"

	"github.com/papercomputeco/memoria/pkg/embeddings"
)

// DefaultDimensions is the vector length when none is configured.
const DefaultDimensions = 64

type Embedder struct {
	dims int
}

// NewEmbedder returns a hash embedder producing dims long vectors.
// dims <= 0 selects DefaultDimensions.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Embed hashes text and chains further digests until dims bytes exist.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	out := make([]float32, 0, e.dims)

	sum := sha256.Sum256([]byte(text))
	for {
		for _, b := range sum {
			if len(out) == e.dims {
				return out, nil
			}
			out = append(out, float32(b)/255)
		}
		sum = sha256.Sum256(sum[:])
	}
}

func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) Close() error {
	return nil
}

var (
	_ embeddings.Embedder    = (*Embedder)(nil)
	_ embeddings.Dimensioned = (*Embedder)(nil)
)
