// Command assess summarizes and scores a batch of entities from a JSON file
// and prints a portfolio report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/bootstrap"
	"github.com/gambia-creative/assessment/internal/evaluation"
	"github.com/gambia-creative/assessment/internal/narrative"
	"github.com/gambia-creative/assessment/pkg/config"
	appLogger "github.com/gambia-creative/assessment/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search ./, ./config, /etc/assessment)")
	input := flag.String("input", "", "JSON file of {entity_id, units} records")
	workers := flag.Int("workers", 0, "entities evaluated in parallel (default: engine.workers)")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flushCache := flag.Bool("flush-cache", false, "drop cached analyses before running")
	briefing := flag.Bool("narrative", false, "append a model-written briefing (also narrative.enabled)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: assess -input records.json [-config config.yaml] [-workers n] [-json]")
		os.Exit(2)
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so the report can be piped.
	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, "stderr")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	data, err := os.ReadFile(*input)
	if err != nil {
		appLogger.Fatal("Failed to read input", zap.String("path", *input), zap.Error(err))
	}

	dataset, err := evaluation.LoadDataset(data)
	if err != nil {
		appLogger.Fatal("Failed to load dataset", zap.Error(err))
	}

	rt, err := bootstrap.New(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize assessment engine", zap.Error(err))
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flushCache && rt.Redis != nil {
		if err := rt.Redis.InvalidateAnalyses(ctx); err != nil {
			appLogger.Warn("Failed to flush analysis cache", zap.Error(err))
		}
	}

	n := cfg.Engine.Workers
	if *workers > 0 {
		n = *workers
	}

	report, err := evaluation.NewEvaluator(rt.Service, n).RunDataset(ctx, dataset)
	if err != nil {
		appLogger.Fatal("Evaluation failed", zap.Error(err))
	}

	if *briefing || cfg.Narrative.Enabled {
		addNarrative(ctx, cfg.Narrative, report)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			appLogger.Error("Failed to encode report", zap.Error(err))
		}
		return
	}

	fmt.Print(evaluation.GenerateReport(report))
}

// addNarrative fills report.Narrative. Failures leave the report as computed.
func addNarrative(ctx context.Context, cfg config.NarrativeConfig, report *evaluation.Report) {
	if cfg.APIKey == "" {
		appLogger.Warn("Narrative requested but narrative.apiKey is not set")
		return
	}

	client := narrative.NewClient(narrative.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
	})

	text, err := client.Summarize(ctx, report)
	if err != nil {
		appLogger.Warn("Failed to generate narrative", zap.Error(err))
		return
	}
	report.Narrative = text
}
