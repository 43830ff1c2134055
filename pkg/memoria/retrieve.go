package memoria

import (
	"context"
	"strconv"
	"strings"

	"github.com/papercomputeco/memoria/pkg/chunker"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

// Retrieve returns up to topN "role: content" excerpts of the raw messages
// whose chunks best match query. Each message appears once, at the rank of
// its best chunk. An empty chunk collection or an embedding failure yields
// no excerpts rather than an error.
func (s *Store) Retrieve(ctx context.Context, query string, topN int) ([]string, error) {
	hits, err := s.retrieveMessages(ctx, query, topN)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(hits))
	for i, m := range hits {
		out[i] = m.Excerpt()
	}
	return out, nil
}

// RetrieveMessages is Retrieve returning the messages themselves.
func (s *Store) RetrieveMessages(ctx context.Context, query string, topN int) ([]rawlog.Message, error) {
	return s.retrieveMessages(ctx, query, topN)
}

func (s *Store) retrieveMessages(ctx context.Context, query string, topN int) ([]rawlog.Message, error) {
	// Argument error, reported whatever the collection holds.
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.vectors.RawChunk()
	if chunks.Len() == 0 {
		return []rawlog.Message{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed", "error", err)
		return []rawlog.Message{}, nil
	}

	matches, err := chunks.Search(ctx, vec, topN)
	if err != nil {
		s.logger.Warn("chunk search failed", "error", err)
		return []rawlog.Message{}, nil
	}

	seen := make(map[uint64]struct{}, len(matches))
	out := make([]rawlog.Message, 0, len(matches))
	for _, match := range matches {
		rawID, _, err := chunker.ParseID(match.ID)
		if err != nil {
			s.logger.Warn("skipping malformed chunk id", "chunk_id", match.ID)
			continue
		}
		if _, dup := seen[rawID]; dup {
			continue
		}
		seen[rawID] = struct{}{}

		msgs, err := s.log.ReadRange(rawID, rawID)
		if err != nil || len(msgs) == 0 {
			s.logger.Debug("skipping dangling chunk", "chunk_id", match.ID)
			continue
		}
		out = append(out, msgs[0])
	}

	return out, nil
}

// EpisodeHit is an episodic summary matched by RetrieveEpisodes together
// with the raw messages it covers.
type EpisodeHit struct {
	EpisodeID uint32           `json:"episode_id"`
	Score     float32          `json:"score"`
	Summary   string           `json:"summary"`
	Messages  []rawlog.Message `json:"messages"`
}

// RetrieveEpisodes searches the episodic collection and re-hydrates the raw
// range of each matching episode.
func (s *Store) RetrieveEpisodes(ctx context.Context, query string, topN int) ([]EpisodeHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	episodic := s.vectors.Episodic()
	if episodic.Len() == 0 {
		return []EpisodeHit{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed", "error", err)
		return []EpisodeHit{}, nil
	}

	matches, err := episodic.Search(ctx, vec, topN)
	if err != nil {
		s.logger.Warn("episodic search failed", "error", err)
		return []EpisodeHit{}, nil
	}

	byID := make(map[string]int)
	episodes := s.tiers.Episodic()
	for i, ep := range episodes {
		byID[strconv.FormatUint(uint64(ep.ID), 10)] = i
	}

	out := make([]EpisodeHit, 0, len(matches))
	for _, match := range matches {
		i, ok := byID[match.ID]
		if !ok {
			continue
		}
		ep := episodes[i]
		msgs, err := s.log.ReadRange(ep.StartID, ep.EndID)
		if err != nil {
			s.logger.Warn("reading episode range failed", "episode", ep.ID, "error", err)
			continue
		}
		out = append(out, EpisodeHit{
			EpisodeID: ep.ID,
			Score:     match.Score,
			Summary:   ep.Summary,
			Messages:  msgs,
		})
	}

	return out, nil
}
