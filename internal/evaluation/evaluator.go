// Package evaluation runs a batch of entities through the assessment service
// and aggregates the results into a portfolio report.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/pkg/logger"
)

type Evaluator struct {
	service *assessment.Service
	workers int
}

// DatasetItem is one entity's text units and, optionally, its raw category
// scores for a digital maturity assessment.
type DatasetItem struct {
	EntityID    string                     `json:"entity_id"`
	Sector      string                     `json:"sector,omitempty"`
	Units       []analyzer.TextUnit        `json:"units"`
	Raw         *scoring.RawCategoryScores `json:"raw,omitempty"`
	SurveyTotal *float64                   `json:"survey_total,omitempty"`
}

type Dataset struct {
	Items []DatasetItem
}

type EntityResult struct {
	EntityID string                    `json:"entity_id"`
	Summary  *aggregator.EntitySummary `json:"summary,omitempty"`
	Score    *assessment.ScoreResult   `json:"score,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

type ThemeCount struct {
	ThemeKey    string `json:"theme"`
	DisplayName string `json:"display_name"`
	Entities    int    `json:"entities"`
}

type Report struct {
	TotalEntities int `json:"total_entities"`
	Failed        int `json:"failed"`

	PositiveCount int `json:"positive"`
	NeutralCount  int `json:"neutral"`
	NegativeCount int `json:"negative"`

	PositivePercentage float64 `json:"positive_percentage"`
	NeutralPercentage  float64 `json:"neutral_percentage"`
	NegativePercentage float64 `json:"negative_percentage"`

	AvgOverallSentiment float64 `json:"avg_overall_sentiment"`
	AvgRating           float64 `json:"avg_rating"`
	AvgPercentage       float64 `json:"avg_percentage"`
	ScoredEntities      int     `json:"scored_entities"`

	EntitiesWithCriticalAreas int          `json:"entities_with_critical_areas"`
	CriticalThemes            []ThemeCount `json:"critical_themes"`

	Entities []EntityResult `json:"entities"`

	// Narrative is an optional model-written briefing; empty unless requested.
	Narrative string `json:"narrative,omitempty"`
}

// NewEvaluator bounds RunDataset to workers concurrent entities.
func NewEvaluator(service *assessment.Service, workers int) *Evaluator {
	if workers <= 0 {
		workers = 1
	}
	return &Evaluator{
		service: service,
		workers: workers,
	}
}

// LoadDataset accepts either a JSON array of items or an object with an
// "items" array.
func LoadDataset(data []byte) (*Dataset, error) {
	trimmed := strings.TrimSpace(string(data))

	var dataset Dataset
	var err error
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &dataset.Items)
	} else {
		var wrapped struct {
			Items []DatasetItem `json:"items"`
		}
		err = json.Unmarshal(data, &wrapped)
		dataset.Items = wrapped.Items
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	for i, item := range dataset.Items {
		if item.EntityID == "" {
			return nil, fmt.Errorf("item %d: entity_id is required", i)
		}
		for j, unit := range item.Units {
			dataset.Items[i].Units[j] = analyzer.NewTextUnit(unit.Text, unit.Rating, unit.Language, unit.PublishedAt)
		}
	}

	return &dataset, nil
}

// EvaluateEntity summarizes one item and scores it when raw scores are given.
func (e *Evaluator) EvaluateEntity(ctx context.Context, item DatasetItem) EntityResult {
	result := EntityResult{EntityID: item.EntityID}

	summary, err := e.service.Summarize(ctx, item.EntityID, item.Units)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Summary = summary

	if item.Raw != nil {
		score, err := e.service.Score(ctx, assessment.ScoreRequest{
			EntityID:    item.EntityID,
			Sector:      item.Sector,
			Raw:         *item.Raw,
			SurveyTotal: item.SurveyTotal,
		})
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Score = score
	}

	return result
}

// RunDataset evaluates every item. Per-entity failures are recorded in the
// report; only context cancellation aborts the run.
func (e *Evaluator) RunDataset(ctx context.Context, dataset *Dataset) (*Report, error) {
	logger.Info("Running dataset evaluation",
		zap.Int("items", len(dataset.Items)),
		zap.Int("workers", e.workers),
	)

	results := make([]EntityResult, len(dataset.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, item := range dataset.Items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.EvaluateEntity(gctx, item)
			if results[i].Error != "" {
				logger.Error("Failed to evaluate entity",
					zap.String("entity_id", item.EntityID),
					zap.String("error", results[i].Error),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation aborted: %w", err)
	}

	report := BuildReport(results)

	logger.Info("Dataset evaluation completed",
		zap.Int("total", report.TotalEntities),
		zap.Int("failed", report.Failed),
		zap.Int("positive", report.PositiveCount),
		zap.Int("negative", report.NegativeCount),
		zap.Int("critical", report.EntitiesWithCriticalAreas),
	)

	return report, nil
}

// BuildReport aggregates entity results. Entities are classified by overall
// sentiment with the same thresholds as per-theme distributions.
func BuildReport(results []EntityResult) *Report {
	report := &Report{
		TotalEntities:  len(results),
		CriticalThemes: []ThemeCount{},
		Entities:       results,
	}

	var sentimentSum, ratingSum, percentageSum float64
	var summarized, rated int
	critical := map[string]*ThemeCount{}

	for _, r := range results {
		if r.Error != "" {
			report.Failed++
		}
		if r.Summary == nil {
			continue
		}
		summarized++

		s := r.Summary
		sentimentSum += s.OverallSentiment
		switch {
		case s.OverallSentiment > aggregator.PositiveThreshold:
			report.PositiveCount++
		case s.OverallSentiment < aggregator.NegativeThreshold:
			report.NegativeCount++
		default:
			report.NeutralCount++
		}

		if s.RatedUnits > 0 {
			rated++
			ratingSum += s.AverageRating
		}

		if len(s.CriticalAreas) > 0 {
			report.EntitiesWithCriticalAreas++
		}
		for _, area := range s.CriticalAreas {
			tc, ok := critical[area.ThemeKey]
			if !ok {
				tc = &ThemeCount{ThemeKey: area.ThemeKey, DisplayName: area.DisplayName}
				critical[area.ThemeKey] = tc
			}
			tc.Entities++
		}

		if r.Score != nil {
			report.ScoredEntities++
			percentageSum += r.Score.Combined.Percentage
		}
	}

	if summarized > 0 {
		n := float64(summarized)
		report.AvgOverallSentiment = sentimentSum / n
		report.PositivePercentage = float64(report.PositiveCount) / n * 100
		report.NeutralPercentage = float64(report.NeutralCount) / n * 100
		report.NegativePercentage = float64(report.NegativeCount) / n * 100
	}
	if rated > 0 {
		report.AvgRating = ratingSum / float64(rated)
	}
	if report.ScoredEntities > 0 {
		report.AvgPercentage = percentageSum / float64(report.ScoredEntities)
	}

	for _, tc := range critical {
		report.CriticalThemes = append(report.CriticalThemes, *tc)
	}
	sort.Slice(report.CriticalThemes, func(i, j int) bool {
		a, b := report.CriticalThemes[i], report.CriticalThemes[j]
		if a.Entities != b.Entities {
			return a.Entities > b.Entities
		}
		return a.ThemeKey < b.ThemeKey
	})

	return report
}

func GenerateReport(report *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, `
Portfolio Report
================

Entities: %d (failed: %d)

Overall Sentiment:
- Positive: %d (%.1f%%)
- Neutral: %d (%.1f%%)
- Negative: %d (%.1f%%)
- Average: %+.3f

Average Rating: %.2f / 5.0
Digital Maturity: %d scored, average %.1f%%

Entities With Critical Areas: %d
`,
		report.TotalEntities, report.Failed,
		report.PositiveCount, report.PositivePercentage,
		report.NeutralCount, report.NeutralPercentage,
		report.NegativeCount, report.NegativePercentage,
		report.AvgOverallSentiment,
		report.AvgRating,
		report.ScoredEntities, report.AvgPercentage,
		report.EntitiesWithCriticalAreas,
	)

	for _, tc := range report.CriticalThemes {
		fmt.Fprintf(&b, "- %s: %d\n", tc.DisplayName, tc.Entities)
	}

	b.WriteString("\n")
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tUNITS\tSENTIMENT\tCRITICAL\tSCORE\tLEVEL")
	for _, r := range report.Entities {
		if r.Summary == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\terror: %s\n", r.EntityID, r.Error)
			continue
		}
		score, level := "-", "-"
		if r.Score != nil {
			score = fmt.Sprintf("%.1f%%", r.Score.Combined.Percentage)
			level = r.Score.Combined.MaturityLevel
		}
		fmt.Fprintf(w, "%s\t%d\t%+.3f\t%d\t%s\t%s\n",
			r.EntityID,
			r.Summary.TotalTextUnits,
			r.Summary.OverallSentiment,
			len(r.Summary.CriticalAreas),
			score,
			level,
		)
	}
	w.Flush()

	if report.Narrative != "" {
		fmt.Fprintf(&b, "\nBriefing\n--------\n%s\n", report.Narrative)
	}

	return b.String()
}
