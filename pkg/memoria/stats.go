package memoria

import (
	"context"
	"strings"

	"github.com/papercomputeco/memoria/pkg/embeddings"
	"github.com/papercomputeco/memoria/pkg/rawlog"
	"github.com/papercomputeco/memoria/pkg/tokens"
	"github.com/papercomputeco/memoria/pkg/vector"
)

// Stats describes the content of a namespace.
type Stats struct {
	Namespace         string `json:"namespace"`
	Messages          uint64 `json:"messages"`
	UserMessages      int    `json:"user_messages"`
	AssistantMessages int    `json:"assistant_messages"`
	EmptyMessages     int    `json:"empty_messages"`
	Segments          int    `json:"segments"`

	Tokens      int  `json:"tokens"`
	TokensExact bool `json:"tokens_exact"`

	Episodic int `json:"episodic"`
	Branch   int `json:"branch"`
	Global   int `json:"global"`

	// Pending is the number of raw messages not yet covered by an episode.
	Pending uint64 `json:"pending"`

	Collections map[string]CollectionStats `json:"collections"`

	// EmbeddingDimension is the configured embedder's output length, 0 when
	// it cannot tell without embedding.
	EmbeddingDimension int `json:"embedding_dimension"`

	// StaleCollections lists collections whose dimension differs from the
	// embedder's. Rebuild fixes them.
	StaleCollections []string `json:"stale_collections,omitempty"`
}

type CollectionStats struct {
	Records   int `json:"records"`
	Dimension int `json:"dimension"`
}

// Stats reads the whole namespace and summarizes it.
func (s *Store) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta := s.log.Metadata()
	st := &Stats{
		Namespace:   s.namespace,
		Messages:    meta.LastID,
		Segments:    len(meta.Segments),
		Collections: make(map[string]CollectionStats, len(vector.Names)),
	}

	messages, err := s.log.ReadRange(1, meta.LastID)
	if err != nil {
		return nil, err
	}

	counter := tokens.Default()
	st.TokensExact = counter.Exact()
	for _, m := range messages {
		switch m.Role {
		case rawlog.RoleUser:
			st.UserMessages++
		case rawlog.RoleAssistant:
			st.AssistantMessages++
		}
		if strings.TrimSpace(m.Content) == "" {
			st.EmptyMessages++
		}
		st.Tokens += counter.Count(m.Content)
	}

	st.Episodic = len(s.tiers.Episodic())
	st.Branch = len(s.tiers.Branch())
	st.Global = len(s.tiers.Global())
	if cursor := s.tiers.Cursor(); meta.LastID > cursor {
		st.Pending = meta.LastID - cursor
	}

	if d, ok := s.embedder.(embeddings.Dimensioned); ok {
		st.EmbeddingDimension = d.Dimensions()
	}
	for _, name := range vector.Names {
		c, err := s.vectors.Get(name)
		if err != nil {
			return nil, err
		}
		cs := CollectionStats{Records: c.Len(), Dimension: c.Dimension()}
		st.Collections[name] = cs
		if st.EmbeddingDimension > 0 && cs.Dimension > 0 && cs.Dimension != st.EmbeddingDimension {
			st.StaleCollections = append(st.StaleCollections, name)
		}
	}

	return st, nil
}
