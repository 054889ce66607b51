package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"kwintel/internal/engine"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// engineError maps an engine failure to a response. A missing snapshot is a
// 503 so callers retry instead of acting on a partial result.
func engineError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engine.ErrSnapshotUnavailable):
		slog.Warn("snapshot unavailable", "path", c.Path(), "error", err)
		return jsonError(c, fiber.StatusServiceUnavailable, engine.ErrSnapshotUnavailable.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return jsonError(c, fiber.StatusRequestTimeout, "request cancelled")
	default:
		slog.Error("engine request failed", "path", c.Path(), "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "processing failed")
	}
}
