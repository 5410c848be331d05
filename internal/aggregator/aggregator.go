// Package aggregator folds per-unit theme analyses into entity-level summaries.
package aggregator

import (
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/pkg/logger"
)

type Aggregator struct {
	analyzer *analyzer.Analyzer
}

func New(a *analyzer.Analyzer) *Aggregator {
	return &Aggregator{analyzer: a}
}

// FoldUnit analyzes one unit and folds it into s, returning the unit's theme scores.
func (g *Aggregator) FoldUnit(s *EntitySummary, unit analyzer.TextUnit) map[string]analyzer.ThemeScoreResult {
	scores := g.analyzer.AnalyzeUnit(unit)

	var lexical float64
	if unit.HasText() {
		lexical = g.analyzer.LexicalDetail(unit.Text).Score
	}

	s.Fold(unit, lexical, scores)
	g.label(s)

	return scores
}

// Summarize builds the finalized summary of one entity from all of its units.
func (g *Aggregator) Summarize(entityID string, units []analyzer.TextUnit) *EntitySummary {
	summary := NewEntitySummary(entityID)
	for _, unit := range units {
		g.FoldUnit(summary, unit)
	}
	summary.Finalize()

	logger.Debug("Entity summarized",
		zap.String("entity_id", entityID),
		zap.Int("units", summary.TotalTextUnits),
		zap.Int("themes", len(summary.Themes)),
		zap.Int("critical_areas", len(summary.CriticalAreas)),
		zap.Float64("overall_sentiment", summary.OverallSentiment),
	)

	return summary
}

func (g *Aggregator) label(s *EntitySummary) {
	store := g.analyzer.Store()
	for key, theme := range s.Themes {
		if theme.DisplayName != key {
			continue
		}
		if def, ok := store.Theme(key); ok {
			theme.DisplayName = def.DisplayName
		}
	}
}
