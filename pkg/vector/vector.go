// Package vector holds the derived vector collections of a memoria namespace.
//
// A Collection is the source of truth for its vectors: parallel id and vector
// arrays persisted as JSON and searched by brute-force cosine similarity. An
// optional accelerated Index mirrors the collection and serves searches when
// it is populated. Both can always be rebuilt from the raw log and tier files.
package vector

import (
	"context"
	"math"
)

// Collection names of one namespace.
const (
	Episodic = "episodic"
	Branch   = "branch"
	Raw      = "raw"
	RawChunk = "raw_chunk"
)

// Names lists every collection of a namespace.
var Names = []string{Episodic, Branch, Raw, RawChunk}

// Record is one stored vector.
type Record struct {
	ID     string
	Vector []float32
}

// Match is a search hit. Higher scores are more similar.
type Match struct {
	ID    string
	Score float32
}

// Source is the text a record is derived from during a rebuild.
type Source struct {
	ID   string
	Text string
}

// EmbedFunc produces the vector for a piece of text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Index is an accelerated nearest-neighbour index mirroring a Collection.
type Index interface {
	// Upsert stores records, replacing any with the same id.
	Upsert(ctx context.Context, records []Record) error

	// Delete removes records by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Query returns up to topK records ordered by similarity.
	Query(ctx context.Context, query []float32, topK int) ([]Match, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Replace swaps the whole content of the index for records.
	Replace(ctx context.Context, records []Record) error

	Close() error
}

// IndexSpec describes the index a collection asks its IndexFactory for.
type IndexSpec struct {
	// Dir is the namespace vectors directory.
	Dir        string
	Namespace  string
	Collection string
	Dimensions int
}

// IndexFactory opens the accelerated index of one collection. It is called
// once the collection dimension is known.
type IndexFactory func(spec IndexSpec) (Index, error)

// Cosine returns the cosine similarity of a and b. It is 0 when either
// vector is empty or has zero norm, or when the lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
