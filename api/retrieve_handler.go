package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoria/pkg/memoria"
)

// RetrieveResponse is the result of a raw chunk retrieval.
type RetrieveResponse struct {
	Query    string   `json:"query"`
	Excerpts []string `json:"excerpts"`
	Count    int      `json:"count"`
}

// EpisodesResponse is the result of an episodic retrieval.
type EpisodesResponse struct {
	Query    string               `json:"query"`
	Episodes []memoria.EpisodeHit `json:"episodes"`
	Count    int                  `json:"count"`
}

// handleRetrieve handles GET /v1/namespaces/:namespace/retrieve.
// Query parameters:
//   - query (required): the search query text
//   - top_n (optional, default 5): number of messages to return
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	query, topN, msg := retrieveParams(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	excerpts, err := st.Retrieve(c.UserContext(), query, topN)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(RetrieveResponse{Query: query, Excerpts: excerpts, Count: len(excerpts)})
}

// handleRetrieveEpisodes handles GET /v1/namespaces/:namespace/episodes
// with the same parameters as handleRetrieve.
func (s *Server) handleRetrieveEpisodes(c *fiber.Ctx) error {
	query, topN, msg := retrieveParams(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	hits, err := st.RetrieveEpisodes(c.UserContext(), query, topN)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(EpisodesResponse{Query: query, Episodes: hits, Count: len(hits)})
}

// retrieveParams reads query and top_n. A non-empty msg describes the
// first invalid parameter.
func retrieveParams(c *fiber.Ctx) (query string, topN int, msg string) {
	query = c.Query("query")
	if query == "" {
		return "", 0, "query parameter is required"
	}

	topN = memoria.DefaultTopN
	if raw := c.Query("top_n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return "", 0, "top_n must be a positive integer"
		}
		topN = parsed
	}
	return query, topN, ""
}
