package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
	"github.com/papercomputeco/memoria/pkg/rollup"
)

// AppendRequest is the body of POST /v1/namespaces/:namespace/messages.
type AppendRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse lists raw messages.
type MessagesResponse struct {
	Messages []rawlog.Message `json:"messages"`
	LastID   uint64           `json:"last_id"`
}

// TruncateResponse reports a tail truncation.
type TruncateResponse struct {
	Removed int    `json:"removed"`
	LastID  uint64 `json:"last_id"`
}

// SummariesResponse lists the valid summaries of every tier.
type SummariesResponse struct {
	Episodic []rollup.EpisodicSummary `json:"episodic"`
	Branch   []rollup.BranchSummary   `json:"branch"`
	Global   []rollup.GlobalSummary   `json:"global"`
}

// RebuildRequest names the collections to rebuild. Empty means all.
type RebuildRequest struct {
	Collections []string `json:"collections"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleListNamespaces(c *fiber.Ctx) error {
	names, err := s.stores.Namespaces()
	if err != nil {
		return s.fail(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(map[string]any{
		"namespaces": names,
		"count":      len(names),
	})
}

// store resolves the :namespace route parameter.
func (s *Server) store(c *fiber.Ctx) (*memoria.Store, error) {
	return s.stores.Get(c.Params("namespace"))
}

// handleInit opens the namespace, which creates any missing file.
func (s *Server) handleInit(c *fiber.Ctx) error {
	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := st.Init(c.UserContext()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(map[string]any{
		"namespace": st.Namespace(),
		"last_id":   st.LastID(),
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := st.Reset(c.UserContext()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(map[string]any{"namespace": st.Namespace()})
}

// handleAppend records one message and reports the summaries it produced.
func (s *Server) handleAppend(c *fiber.Ctx) error {
	var req AppendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	role, err := rawlog.ParseRole(req.Role)
	if err != nil {
		return s.fail(c, err)
	}

	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	res, err := st.Append(c.UserContext(), role, req.Content)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// handleReadMessages returns ?start..?end inclusive, or the last ?recent
// messages. With neither it returns the whole log.
func (s *Server) handleReadMessages(c *fiber.Ctx) error {
	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	var msgs []rawlog.Message
	if recent := c.Query("recent"); recent != "" {
		n, err := strconv.Atoi(recent)
		if err != nil || n <= 0 {
			return badRequest(c, "recent must be a positive integer")
		}
		msgs, err = st.Recent(n)
		if err != nil {
			return s.fail(c, err)
		}
	} else {
		start, err := uintQuery(c, "start", 1)
		if err != nil {
			return badRequest(c, "start must be a non-negative integer")
		}
		end, err := uintQuery(c, "end", st.LastID())
		if err != nil {
			return badRequest(c, "end must be a non-negative integer")
		}
		msgs, err = st.ReadRange(start, end)
		if err != nil {
			return s.fail(c, err)
		}
	}

	if msgs == nil {
		msgs = []rawlog.Message{}
	}
	return c.JSON(MessagesResponse{Messages: msgs, LastID: st.LastID()})
}

// handleTruncate removes the newest ?n messages (default 1).
func (s *Server) handleTruncate(c *fiber.Ctx) error {
	n := 1
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return badRequest(c, "n must be a non-negative integer")
		}
		n = parsed
	}

	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	removed, err := st.TruncateLast(c.UserContext(), n)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(TruncateResponse{Removed: removed, LastID: st.LastID()})
}

func (s *Server) handleSummaries(c *fiber.Ctx) error {
	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	eps, branches, globals := st.Summaries()
	return c.JSON(SummariesResponse{Episodic: eps, Branch: branches, Global: globals})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	stats, err := st.Stats(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(stats)
}

func (s *Server) handleRebuild(c *fiber.Ctx) error {
	var req RebuildRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	st, err := s.store(c)
	if err != nil {
		return s.fail(c, err)
	}

	if err := st.Rebuild(c.UserContext(), req.Collections...); err != nil {
		return s.fail(c, err)
	}
	return s.handleStats(c)
}

func uintQuery(c *fiber.Ctx, key string, def uint64) (uint64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
