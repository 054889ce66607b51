package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"kwintel/internal/db"
	"kwintel/internal/models"
	"kwintel/internal/validation"
)

// SuggestionStore reads and reviews stored leakage suggestions.
type SuggestionStore interface {
	ListSuggestions(ctx context.Context, status string) ([]models.LeakageSuggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id uuid.UUID, status string) (*models.LeakageSuggestion, error)
}

// SuggestionHandler handles the leakage review queue via JSON API.
type SuggestionHandler struct {
	store SuggestionStore
}

// NewSuggestionHandler creates a new API suggestion handler.
func NewSuggestionHandler(store SuggestionStore) *SuggestionHandler {
	return &SuggestionHandler{store: store}
}

// List returns suggestions, optionally filtered by ?status=.
func (h *SuggestionHandler) List(c fiber.Ctx) error {
	status := c.Query("status", "")
	switch status {
	case "", models.SuggestionPending, models.SuggestionAccepted, models.SuggestionDismissed:
	default:
		return jsonError(c, fiber.StatusBadRequest, "status must be pending, accepted or dismissed")
	}

	suggestions, err := h.store.ListSuggestions(c.Context(), status)
	if err != nil {
		slog.Error("failed to list suggestions", "status", status, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch suggestions")
	}
	return jsonSuccess(c, suggestions)
}

// Accept marks a pending suggestion accepted.
func (h *SuggestionHandler) Accept(c fiber.Ctx) error {
	return h.review(c, models.SuggestionAccepted)
}

// Dismiss marks a pending suggestion dismissed.
func (h *SuggestionHandler) Dismiss(c fiber.Ctx) error {
	return h.review(c, models.SuggestionDismissed)
}

func (h *SuggestionHandler) review(c fiber.Ctx, status string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid suggestion id")
	}
	if valid, msg := validation.ValidateStatusTransition(status); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	s, err := h.store.UpdateSuggestionStatus(c.Context(), id, status)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrSuggestionNotFound):
			return jsonError(c, fiber.StatusNotFound, "suggestion not found")
		case errors.Is(err, db.ErrSuggestionClosed):
			return jsonError(c, fiber.StatusConflict, "suggestion has already been reviewed")
		}
		slog.Error("failed to review suggestion", "id", id, "status", status, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to update suggestion")
	}

	slog.Info("suggestion reviewed", "id", id, "candidate", s.CandidateText, "status", status)
	return jsonSuccess(c, s)
}
