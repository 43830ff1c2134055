package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// fail writes err with the status its kind maps to. Argument errors are the
// caller's fault; everything else is ours.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, rawlog.ErrInvalidRole),
		errors.Is(err, memoria.ErrEmptyQuery),
		errors.Is(err, memoria.ErrInvalidNamespace):
		status = fiber.StatusBadRequest
	default:
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
