package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/normalize"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/pkg/logger"
)

// MetaHandler serves the loaded lexicon and weight tables and the
// cross-entity normalizer.
type MetaHandler struct {
	service *assessment.Service
}

func NewMetaHandler(service *assessment.Service) *MetaHandler {
	return &MetaHandler{service: service}
}

func (h *MetaHandler) ListThemes(c *fiber.Ctx) error {
	store := h.service.Analyzer().Store()
	return c.JSON(fiber.Map{
		"version": store.Version(),
		"themes":  store.Definitions(),
	})
}

func (h *MetaHandler) ListSectors(c *fiber.Ctx) error {
	table := h.service.Combinator().Table()
	return c.JSON(fiber.Map{
		"categories": scoring.Categories,
		"sectors":    table.Vectors(),
		"default":    table.Default(),
	})
}

func (h *MetaHandler) Normalize(c *fiber.Ctx) error {
	var req struct {
		Values        []float64 `json:"values"`
		ReferenceMean *float64  `json:"reference_mean"`
		TargetMean    *float64  `json:"target_mean"`
		Target        []float64 `json:"target"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	reference := normalize.Mean(req.Values)
	if req.ReferenceMean != nil {
		reference = *req.ReferenceMean
	}

	var target float64
	switch {
	case req.TargetMean != nil:
		target = *req.TargetMean
	case len(req.Target) > 0:
		target = normalize.Mean(req.Target)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "target_mean or target is required",
		})
	}

	factor, err := normalize.Factor(reference, target)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  err.Error(),
			"values": req.Values,
			"factor": factor,
		})
	}

	values, _ := normalize.Rescale(req.Values, reference, target)
	return c.JSON(fiber.Map{
		"values":         values,
		"factor":         factor,
		"reference_mean": reference,
		"target_mean":    target,
	})
}
