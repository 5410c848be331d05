package scoring

import (
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/pkg/logger"
)

// WeightedScoreResult is the raw scores multiplied by the sector weights.
type WeightedScoreResult struct {
	Sector         string             `json:"sector"`
	ResolvedSector string             `json:"resolved_sector"`
	Match          string             `json:"match"`
	SectorFallback bool               `json:"sector_fallback"`
	Raw            RawCategoryScores  `json:"raw"`
	Weights        SectorWeightVector `json:"weights"`
	Weighted       RawCategoryScores  `json:"weighted"`
	ExternalTotal  float64            `json:"external_total"`
	Warnings       []string           `json:"warnings,omitempty"`
}

type CombinedScore struct {
	ExternalTotal float64  `json:"external_total"`
	SurveyTotal   *float64 `json:"survey_total,omitempty"`
	CombinedScore float64  `json:"combined_score"`
	MaxPossible   float64  `json:"max_possible"`
	Percentage    float64  `json:"percentage"`
	MaturityLevel string   `json:"maturity_level"`
}

type Combinator struct {
	table *WeightTable
	clamp bool
}

type Option func(*Combinator)

// WithClamping limits raw scores to [0,10] before weighting. Off by default:
// out-of-range input is logged and passed through unchanged.
func WithClamping(enabled bool) Option {
	return func(c *Combinator) {
		c.clamp = enabled
	}
}

func NewCombinator(table *WeightTable, opts ...Option) *Combinator {
	c := &Combinator{table: table}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Combinator) Table() *WeightTable {
	return c.table
}

// ApplyWeights multiplies each raw score by its sector weight and sums the
// products. An unknown sector uses the default weights and is reported through
// SectorFallback, never as an error.
func (c *Combinator) ApplyWeights(raw RawCategoryScores, sector string) WeightedScoreResult {
	weights, resolved, match := c.table.Lookup(sector)

	result := WeightedScoreResult{
		Sector:         sector,
		ResolvedSector: resolved,
		Match:          match.String(),
		SectorFallback: match == MatchDefault,
		Raw:            raw,
		Weights:        weights,
	}

	if result.SectorFallback {
		logger.Warn("Unknown sector, using default weights", zap.String("sector", sector))
		result.Warnings = append(result.Warnings, "unknown sector: default weights applied")
	}

	if err := raw.Validate(); err != nil {
		logger.Warn("Raw category score out of range",
			zap.String("sector", sector),
			zap.Bool("clamped", c.clamp),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, err.Error())
		if c.clamp {
			raw = raw.Clamped()
		}
	}

	result.Weighted = RawCategoryScores{
		SocialMedia:         raw.SocialMedia * weights.SocialMedia,
		Website:             raw.Website * weights.Website,
		VisualContent:       raw.VisualContent * weights.VisualContent,
		Discoverability:     raw.Discoverability * weights.Discoverability,
		DigitalSales:        raw.DigitalSales * weights.DigitalSales,
		PlatformIntegration: raw.PlatformIntegration * weights.PlatformIntegration,
	}
	for _, cat := range Categories {
		result.ExternalTotal += result.Weighted.Get(cat)
	}

	return result
}

// Combine adds an optional 0-30 survey score. Without one the maximum is 70.
func Combine(weighted WeightedScoreResult, surveyTotal *float64) CombinedScore {
	score := CombinedScore{
		ExternalTotal: weighted.ExternalTotal,
		CombinedScore: weighted.ExternalTotal,
		MaxPossible:   MaxExternal,
	}

	if surveyTotal != nil {
		if *surveyTotal < 0 || *surveyTotal > MaxSurvey {
			logger.Warn("Survey score out of range", zap.Float64("survey_total", *surveyTotal))
		}
		survey := *surveyTotal
		score.SurveyTotal = &survey
		score.CombinedScore += survey
		score.MaxPossible = MaxCombined
	}

	score.Percentage = 100 * score.CombinedScore / score.MaxPossible
	score.MaturityLevel = MaturityLevel(score.Percentage)
	return score
}
