package memoria

import (
	"log/slog"

	"github.com/papercomputeco/memoria/pkg/embeddings"
	"github.com/papercomputeco/memoria/pkg/eventstream"
	"github.com/papercomputeco/memoria/pkg/summarizer"
	"github.com/papercomputeco/memoria/pkg/vector"
)

type Option func(*Store)

// WithEmbedder sets the embedder for every collection. Defaults to the
// 64 dimension hash embedder.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Store) {
		if e != nil {
			s.embedder = e
		}
	}
}

// WithSummarizer enables the rollup tiers. Without one no summary is ever
// produced.
func WithSummarizer(sum summarizer.Summarizer) Option {
	return func(s *Store) {
		s.summarizer = sum
	}
}

// WithIndexFactory mirrors every collection into an accelerated index.
func WithIndexFactory(f vector.IndexFactory) Option {
	return func(s *Store) {
		s.indexFactory = f
	}
}

// WithPublisher publishes a SummaryEmittedEvent for every persisted summary.
// The store takes ownership of the publisher and closes it on Close.
func WithPublisher(p eventstream.Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithChunkTokens sets the word budget of raw message chunks.
func WithChunkTokens(n int) Option {
	return func(s *Store) {
		s.chunkTokens = n
	}
}

// WithRotate sets the raw segment size.
func WithRotate(n int) Option {
	return func(s *Store) {
		s.rotate = n
	}
}
