package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/api"
	"github.com/gambia-creative/assessment/internal/bootstrap"
	"github.com/gambia-creative/assessment/internal/metrics"
	"github.com/gambia-creative/assessment/internal/middleware/ratelimit"
	"github.com/gambia-creative/assessment/internal/middleware/security"
	"github.com/gambia-creative/assessment/internal/middleware/validation"
	"github.com/gambia-creative/assessment/pkg/config"
	appLogger "github.com/gambia-creative/assessment/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Assessment API Server")

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	rt, err := bootstrap.New(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize assessment engine", zap.Error(err))
	}
	defer rt.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	allowOrigins := "*"
	if len(cfg.Server.AllowedOrigins) > 0 {
		allowOrigins = strings.Join(cfg.Server.AllowedOrigins, ", ")
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:            appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))
	app.Use(limiter.Middleware())

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	api.Register(app, rt.Service, api.Options{
		Limits: validation.Config{
			MaxTextLength: cfg.Engine.MaxTextLength,
			Logger:        appLogger.GetLogger(),
		},
		MetricsPath: metricsPath,
		Ready:       rt.Ready,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
