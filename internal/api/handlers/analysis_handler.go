package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/middleware/validation"
	"github.com/gambia-creative/assessment/pkg/logger"
)

type AnalysisHandler struct {
	service *assessment.Service
	limits  validation.Config
}

func NewAnalysisHandler(service *assessment.Service, limits validation.Config) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		limits:  limits,
	}
}

func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	var req struct {
		Text   string `json:"text"`
		Rating *int   `json:"rating"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	text := validation.SanitizeText(req.Text)
	if text == "" && req.Rating == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text or rating is required",
		})
	}
	if !h.limits.CheckLength(text) {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "text is too long",
		})
	}
	if req.Rating != nil && !analyzer.ValidRating(*req.Rating) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "rating must be between 1 and 5",
		})
	}

	result, err := h.service.Analyze(c.UserContext(), assessment.SourceAPI, text, req.Rating)
	if err != nil {
		logger.Error("Failed to analyze text", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze text",
		})
	}

	return c.JSON(result)
}
