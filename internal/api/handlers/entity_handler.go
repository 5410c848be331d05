package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/ingestion"
	"github.com/gambia-creative/assessment/internal/middleware/validation"
	"github.com/gambia-creative/assessment/internal/storage/sqlite"
	"github.com/gambia-creative/assessment/pkg/logger"
)

type EntityHandler struct {
	service *assessment.Service
	limits  validation.Config
}

func NewEntityHandler(service *assessment.Service, limits validation.Config) *EntityHandler {
	return &EntityHandler{
		service: service,
		limits:  limits,
	}
}

type unitRequest struct {
	Text        string     `json:"text"`
	Rating      *int       `json:"rating"`
	Language    string     `json:"language"`
	PublishedAt *time.Time `json:"published_at"`
}

func (u unitRequest) toUnit() analyzer.TextUnit {
	return analyzer.NewTextUnit(validation.SanitizeText(u.Text), u.Rating, u.Language, u.PublishedAt)
}

// Summarize folds the posted units into a fresh summary for the entity,
// replacing any stored one.
func (h *EntityHandler) Summarize(c *fiber.Ctx) error {
	var req struct {
		Units []unitRequest `json:"units"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	units := make([]analyzer.TextUnit, 0, len(req.Units))
	for _, u := range req.Units {
		if !h.limits.CheckLength(u.Text) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": "text is too long",
			})
		}
		units = append(units, u.toUnit())
	}

	summary, err := h.service.Summarize(c.UserContext(), c.Params("id"), units)
	if err != nil {
		logger.Error("Failed to summarize entity", zap.String("entity_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to summarize entity",
		})
	}

	return c.JSON(summary)
}

func (h *EntityHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.service.GetSummary(c.UserContext(), c.Params("id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "summary not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load summary", zap.String("entity_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load summary",
		})
	}

	return c.JSON(summary)
}

func (h *EntityHandler) IngestPage(c *fiber.Ctx) error {
	var req struct {
		URL            string  `json:"url"`
		HTML           string  `json:"html"`
		ReviewSelector string  `json:"review_selector"`
		RatingAttr     string  `json:"rating_attr"`
		RatingScale    float64 `json:"rating_scale"`
		Language       string  `json:"language"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.URL == "" && req.HTML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url or html is required",
		})
	}
	if req.URL != "" && !validation.IsValidURL(req.URL) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid url",
		})
	}

	result, err := h.service.IngestPage(c.UserContext(), c.Params("id"), assessment.PageRequest{
		URL:  req.URL,
		HTML: req.HTML,
		Options: ingestion.ExtractOptions{
			ReviewSelector: req.ReviewSelector,
			RatingAttr:     req.RatingAttr,
			RatingScale:    req.RatingScale,
			Language:       req.Language,
		},
	})
	switch {
	case errors.Is(err, ingestion.ErrBlockedHost):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "url host is not reachable from this service",
		})
	case errors.Is(err, assessment.ErrNoFetcher):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		logger.Error("Failed to ingest page", zap.String("url", req.URL), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to ingest page",
		})
	}

	return c.JSON(result)
}

// ThemeSummaries lists every entity's standing on one theme, worst first.
func (h *EntityHandler) ThemeSummaries(c *fiber.Ctx) error {
	key := c.Params("key")
	if _, ok := h.service.Analyzer().Store().Theme(key); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown theme",
		})
	}

	summaries, err := h.service.ThemeSummaries(key)
	if err != nil {
		logger.Error("Failed to list theme summaries", zap.String("theme", key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list theme summaries",
		})
	}

	return c.JSON(fiber.Map{
		"theme":    key,
		"entities": summaries,
	})
}
