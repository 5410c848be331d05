package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/pkg/logger"
)

type ScoreHandler struct {
	service *assessment.Service
}

func NewScoreHandler(service *assessment.Service) *ScoreHandler {
	return &ScoreHandler{service: service}
}

func (h *ScoreHandler) CreateScore(c *fiber.Ctx) error {
	var req assessment.ScoreRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SurveyTotal != nil {
		if *req.SurveyTotal < 0 || *req.SurveyTotal > scoring.MaxSurvey {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": scoring.ErrSurveyOutOfRange.Error(),
			})
		}
	}

	result, err := h.service.Score(c.UserContext(), req)
	if err != nil {
		logger.Error("Failed to score entity", zap.String("entity_id", req.EntityID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to score entity",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *ScoreHandler) ListScores(c *fiber.Ctx) error {
	scores, err := h.service.ListScores(c.Query("sector"))
	if err != nil {
		logger.Error("Failed to list scores", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list scores",
		})
	}

	return c.JSON(fiber.Map{
		"scores": scores,
		"count":  len(scores),
	})
}

func (h *ScoreHandler) SectorAverages(c *fiber.Ctx) error {
	averages, err := h.service.SectorAverages()
	if err != nil {
		logger.Error("Failed to compute sector averages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute sector averages",
		})
	}

	return c.JSON(fiber.Map{
		"sectors": averages,
	})
}
