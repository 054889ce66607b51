package api

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"kwintel/internal/engine"
	"kwintel/internal/models"
	"kwintel/internal/validation"
)

// KeywordHandler serves normalization, classification and decisions via
// JSON API.
type KeywordHandler struct {
	engine   *engine.Engine
	metrics  engine.MetricsProvider
	sink     engine.Sink
	maxBatch int
}

// NewKeywordHandler creates a new API keyword handler. metrics and sink may
// be nil, in which case decisions run without stored metrics and batches are
// not persisted.
func NewKeywordHandler(eng *engine.Engine, metrics engine.MetricsProvider, sink engine.Sink, maxBatch int) *KeywordHandler {
	return &KeywordHandler{engine: eng, metrics: metrics, sink: sink, maxBatch: maxBatch}
}

type keywordRequest struct {
	Keyword models.Keyword         `json:"keyword"`
	Metrics *models.KeywordMetrics `json:"metrics,omitempty"`
	Version *int64                 `json:"version,omitempty"`
}

type decideResponse struct {
	Processed models.ProcessedKeyword `json:"processed"`
	Decision  models.ActionDecision   `json:"decision"`
}

type batchRequest struct {
	Keywords []models.Keyword                 `json:"keywords"`
	Metrics  map[string]models.KeywordMetrics `json:"metrics,omitempty"`
	Version  *int64                           `json:"version,omitempty"`
}

// Normalize returns the canonical form of a raw keyword.
func (h *KeywordHandler) Normalize(c fiber.Ctx) error {
	var body struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if valid, msg := validation.ValidateKeywordText(body.Text); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if valid, msg := validation.ValidateLanguage(body.Language); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	return jsonSuccess(c, h.engine.Normalize(body.Text, models.Language(body.Language)))
}

// Classify classifies one keyword against the requested or latest version.
func (h *KeywordHandler) Classify(c fiber.Ctx) error {
	var body keywordRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pk, err := h.engine.Classify(c.Context(), body.Keyword, body.Version)
	if err != nil {
		return engineError(c, err)
	}
	return jsonSuccess(c, pk)
}

// Decide classifies one keyword and chooses its action. Metrics in the body
// take precedence over stored metrics.
func (h *KeywordHandler) Decide(c fiber.Ctx) error {
	var body keywordRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	metrics := body.Metrics
	if metrics == nil && h.metrics != nil && body.Keyword.ID != "" {
		m, err := h.metrics.GetMetrics(c.Context(), body.Keyword.ID)
		if err != nil {
			slog.Warn("metrics lookup failed, deciding without metrics", "keyword_id", body.Keyword.ID, "error", err)
		}
		metrics = m
	}

	pk, d, err := h.engine.Decide(c.Context(), body.Keyword, metrics, body.Version)
	if err != nil {
		return engineError(c, err)
	}
	return jsonSuccess(c, decideResponse{Processed: pk, Decision: d})
}

// Batch runs a pinned batch, persists the decisions and merges the leakage
// suggestions into the review queue.
func (h *KeywordHandler) Batch(c fiber.Ctx) error {
	var body batchRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(body.Keywords) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "keywords are required")
	}
	if h.maxBatch > 0 && len(body.Keywords) > h.maxBatch {
		return jsonError(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds %d keywords", h.maxBatch))
	}

	var provider engine.MetricsProvider = engine.StaticMetrics(body.Metrics)
	if body.Metrics == nil && h.metrics != nil {
		provider = h.metrics
	}

	res, err := h.engine.RunBatch(c.Context(), body.Keywords, body.Version, provider)
	if err != nil {
		return engineError(c, err)
	}

	if h.sink != nil {
		if err := h.sink.SaveDecisions(c.Context(), res.Decisions); err != nil {
			slog.Error("failed to save decisions", "version", res.VersionID, "error", err)
			return jsonError(c, fiber.StatusInternalServerError, "failed to save decisions")
		}
		merged, err := h.sink.SaveSuggestions(c.Context(), res.Suggestions)
		if err != nil {
			slog.Error("failed to save suggestions", "version", res.VersionID, "error", err)
			return jsonError(c, fiber.StatusInternalServerError, "failed to save suggestions")
		}
		res.Suggestions = merged
	}

	return jsonSuccess(c, res)
}

// Versions lists the available dictionary versions.
func (h *KeywordHandler) Versions(c fiber.Ctx) error {
	versions, err := h.engine.Versions(c.Context())
	if err != nil {
		return engineError(c, err)
	}
	return jsonSuccess(c, fiber.Map{"versions": versions})
}
