package vector

import "errors"

var (
	// ErrNotFound is returned when a record is not found in a collection.
	ErrNotFound = errors.New("record not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when an embedding provider or vector index
	// cannot be reached.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimension is returned when a vector does not match the dimension of
	// the collection or provider it is meant for.
	ErrDimension = errors.New("vector dimension mismatch")
)
