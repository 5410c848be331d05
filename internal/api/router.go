// Package api mounts the assessment handlers on a fiber app.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/api/handlers"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/metrics"
	"github.com/gambia-creative/assessment/internal/middleware/validation"
	"github.com/gambia-creative/assessment/pkg/logger"
)

type Options struct {
	Limits validation.Config
	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
	// Ready reports whether the backing stores are reachable.
	Ready func(ctx context.Context) error
}

func Register(app *fiber.App, service *assessment.Service, opts Options) {
	analysisHandler := handlers.NewAnalysisHandler(service, opts.Limits)
	entityHandler := handlers.NewEntityHandler(service, opts.Limits)
	scoreHandler := handlers.NewScoreHandler(service)
	metaHandler := handlers.NewMetaHandler(service)
	wsHandler := handlers.NewWebSocketHandler(service, opts.Limits)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/ready", func(c *fiber.Ctx) error {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := opts.Ready(ctx); err != nil {
				logger.Warn("Readiness check failed", zap.Error(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unavailable",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	if opts.MetricsPath != "" {
		app.Get(opts.MetricsPath, metrics.MetricsHandler())
	}

	v1 := app.Group("/api/v1", validation.Middleware(opts.Limits))

	v1.Post("/analyze", analysisHandler.Analyze)

	entities := v1.Group("/entities/:id", validation.EntityID())
	entities.Post("/summary", entityHandler.Summarize)
	entities.Get("/summary", entityHandler.GetSummary)
	entities.Post("/pages", entityHandler.IngestPage)

	v1.Post("/scores", scoreHandler.CreateScore)
	v1.Get("/scores", scoreHandler.ListScores)
	v1.Get("/sectors/averages", scoreHandler.SectorAverages)
	v1.Get("/sectors", metaHandler.ListSectors)

	v1.Get("/themes", metaHandler.ListThemes)
	v1.Get("/themes/:key/summaries", entityHandler.ThemeSummaries)

	v1.Post("/normalize", metaHandler.Normalize)

	app.Get("/ws/entities/:id",
		validation.EntityID(),
		wsHandler.Upgrade,
		websocket.New(wsHandler.HandleConnection),
	)
}
