// Package embeddings defines the text embedding capability used to index raw
// messages, chunks and summaries.
//
// Implementations must return vectors of a constant length: a namespace that
// switches provider or dimension needs a full rebuild of its collections.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Dimensioned is implemented by embedders that know their output length
// without embedding anything.
type Dimensioned interface {
	Dimensions() int
}
