// Package assessment wires the scoring engine to its collaborators: page
// ingestion, SQLite persistence, the optional Redis cache and metrics.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/analyzer"
	cache "github.com/gambia-creative/assessment/internal/cache/redis"
	"github.com/gambia-creative/assessment/internal/ingestion"
	"github.com/gambia-creative/assessment/internal/metrics"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/internal/storage/models"
	"github.com/gambia-creative/assessment/pkg/logger"
)

var (
	ErrNoPageInput = errors.New("either url or html is required")
	ErrNoFetcher   = errors.New("page fetching is not configured")
)

// Store is the persistence the service needs; *sqlite.Client satisfies it.
type Store interface {
	UpsertEntity(entity *models.Entity) error
	SaveEntitySummary(summary *aggregator.EntitySummary) error
	GetEntitySummary(entityID string) (*aggregator.EntitySummary, error)
	ListThemeSummaries(themeKey string) ([]models.ThemeSummary, error)
	SaveDigitalScore(score *models.DigitalScore) error
	ListDigitalScores(sector string) ([]models.DigitalScore, error)
	SectorAverages() ([]models.SectorAverage, error)
}

// Cache holds analyses and finalized summaries; *redis.Client satisfies it.
type Cache interface {
	GetAnalysis(ctx context.Context, key string, out interface{}) (bool, error)
	SetAnalysis(ctx context.Context, key string, result interface{}) error
	GetSummary(ctx context.Context, entityID string, out interface{}) (bool, error)
	SetSummary(ctx context.Context, entityID string, summary interface{}) error
	DeleteSummary(ctx context.Context, entityID string) error
}

type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

type Deps struct {
	Analyzer   *analyzer.Analyzer
	Combinator *scoring.Combinator
	Processor  *ingestion.Processor
	Fetcher    PageFetcher
	Store      Store
	Cache      Cache
}

type Service struct {
	analyzer   *analyzer.Analyzer
	aggregator *aggregator.Aggregator
	combinator *scoring.Combinator
	processor  *ingestion.Processor
	fetcher    PageFetcher
	store      Store
	cache      Cache
}

func NewService(deps Deps) *Service {
	processor := deps.Processor
	if processor == nil {
		processor = ingestion.NewProcessor(ingestion.ExtractOptions{})
	}
	return &Service{
		analyzer:   deps.Analyzer,
		aggregator: aggregator.New(deps.Analyzer),
		combinator: deps.Combinator,
		processor:  processor,
		fetcher:    deps.Fetcher,
		store:      deps.Store,
		cache:      deps.Cache,
	}
}

func (s *Service) Analyzer() *analyzer.Analyzer { return s.analyzer }

func (s *Service) Aggregator() *aggregator.Aggregator { return s.aggregator }

func (s *Service) Combinator() *scoring.Combinator { return s.combinator }

type AnalysisResult struct {
	Themes           map[string]analyzer.ThemeScoreResult `json:"themes"`
	Matched          []analyzer.ThemeScoreResult          `json:"matched"`
	OverallSentiment float64                              `json:"overall_sentiment"`
	LexicalSentiment float64                              `json:"lexical_sentiment"`
	ScoredWords      int                                  `json:"scored_words"`
	Cached           bool                                 `json:"cached"`
}

// Analyze scores one text and rating. Results are cached by lexicon version,
// text and rating; cache failures only cost the lookup.
func (s *Service) Analyze(ctx context.Context, source, text string, rating *int) (*AnalysisResult, error) {
	metrics.AnalysesTotal.WithLabelValues(source).Inc()

	key := cache.AnalysisKey(s.analyzer.Store().Version(), text, rating)
	if s.cache != nil {
		var cached AnalysisResult
		hit, err := s.cache.GetAnalysis(ctx, key, &cached)
		if err != nil {
			logger.Warn("Analysis cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("analysis").Inc()
			cached.Cached = true
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("analysis").Inc()
	}

	start := time.Now()
	themes := s.analyzer.Analyze(text, rating)
	detail := s.analyzer.LexicalDetail(text)
	result := &AnalysisResult{
		Themes:           themes,
		Matched:          MatchedThemes(themes),
		OverallSentiment: s.analyzer.OverallSentiment(text, rating),
		LexicalSentiment: detail.Score,
		ScoredWords:      detail.Scored,
	}
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	if s.cache != nil {
		if err := s.cache.SetAnalysis(ctx, key, result); err != nil {
			logger.Warn("Failed to cache analysis", zap.Error(err))
		}
	}

	return result, nil
}

// MatchedThemes returns the themes with keyword hits, most relevant first.
func MatchedThemes(themes map[string]analyzer.ThemeScoreResult) []analyzer.ThemeScoreResult {
	matched := []analyzer.ThemeScoreResult{}
	for _, r := range themes {
		if r.Matched() {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Relevance != matched[j].Relevance {
			return matched[i].Relevance > matched[j].Relevance
		}
		return matched[i].ThemeKey < matched[j].ThemeKey
	})
	return matched
}

// Analysis sources recorded in metrics.
const (
	SourceAPI     = "api"
	SourceSummary = "summary"
	SourcePage    = "page"
	SourceStream  = "stream"
)

// foldUnit analyzes one unit into summary and records it under source.
func (s *Service) foldUnit(source string, summary *aggregator.EntitySummary, unit analyzer.TextUnit) map[string]analyzer.ThemeScoreResult {
	start := time.Now()
	scores := s.aggregator.FoldUnit(summary, unit)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.AnalysesTotal.WithLabelValues(source).Inc()
	metrics.TextUnitsFolded.Inc()
	return scores
}

// Summarize folds all units of one entity, then stores the finalized summary.
func (s *Service) Summarize(ctx context.Context, entityID string, units []analyzer.TextUnit) (*aggregator.EntitySummary, error) {
	return s.summarize(ctx, SourceSummary, entityID, units)
}

func (s *Service) summarize(ctx context.Context, source, entityID string, units []analyzer.TextUnit) (*aggregator.EntitySummary, error) {
	summary := aggregator.NewEntitySummary(entityID)
	for _, unit := range units {
		s.foldUnit(source, summary, unit)
	}
	summary.Finalize()

	logger.Debug("Entity summarized",
		zap.String("entity_id", entityID),
		zap.String("source", source),
		zap.Int("units", summary.TotalTextUnits),
		zap.Int("critical_areas", len(summary.CriticalAreas)),
	)

	if err := s.SaveSummary(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// SaveSummary persists a finalized summary and refreshes its cache entry.
func (s *Service) SaveSummary(ctx context.Context, summary *aggregator.EntitySummary) error {
	metrics.SummariesFinalized.Inc()
	for _, area := range summary.CriticalAreas {
		metrics.CriticalAreasDetected.WithLabelValues(area.ThemeKey).Inc()
	}

	if err := s.store.SaveEntitySummary(summary); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, summary.EntityID, summary); err != nil {
			logger.Warn("Failed to cache summary", zap.String("entity_id", summary.EntityID), zap.Error(err))
			if err := s.cache.DeleteSummary(ctx, summary.EntityID); err != nil {
				logger.Warn("Failed to drop stale summary", zap.String("entity_id", summary.EntityID), zap.Error(err))
			}
		}
	}
	return nil
}

// GetSummary returns the stored summary, from cache when possible. Missing
// entities yield an error wrapping sqlite.ErrNotFound.
func (s *Service) GetSummary(ctx context.Context, entityID string) (*aggregator.EntitySummary, error) {
	if s.cache != nil {
		var cached aggregator.EntitySummary
		hit, err := s.cache.GetSummary(ctx, entityID, &cached)
		if err != nil {
			logger.Warn("Summary cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("summary").Inc()
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("summary").Inc()
	}

	summary, err := s.store.GetEntitySummary(entityID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, entityID, summary); err != nil {
			logger.Warn("Failed to cache summary", zap.String("entity_id", entityID), zap.Error(err))
		}
	}
	return summary, nil
}

type PageRequest struct {
	URL     string
	HTML    string
	Options ingestion.ExtractOptions
}

type PageResult struct {
	Page    *ingestion.Page           `json:"page"`
	Summary *aggregator.EntitySummary `json:"summary"`
}

// IngestPage fetches or takes the given HTML, extracts its text units and
// summarizes them for the entity.
func (s *Service) IngestPage(ctx context.Context, entityID string, req PageRequest) (*PageResult, error) {
	html := req.HTML
	if strings.TrimSpace(html) == "" {
		if req.URL == "" {
			return nil, ErrNoPageInput
		}
		if s.fetcher == nil {
			return nil, ErrNoFetcher
		}
		body, err := s.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", req.URL, err)
		}
		html = body
	}

	page, err := s.processor.ExtractTextUnits(html, req.Options)
	if err != nil {
		return nil, err
	}
	page.URL = req.URL

	if req.URL != "" {
		entity := &models.Entity{ID: entityID, Name: page.Title, Website: req.URL}
		if err := s.store.UpsertEntity(entity); err != nil {
			logger.Warn("Failed to record entity", zap.String("entity_id", entityID), zap.Error(err))
		}
	}

	summary, err := s.summarize(ctx, SourcePage, entityID, page.Units())
	if err != nil {
		return nil, err
	}

	logger.Info("Page ingested",
		zap.String("entity_id", entityID),
		zap.String("url", req.URL),
		zap.Int("reviews", len(page.Reviews)),
	)

	return &PageResult{Page: page, Summary: summary}, nil
}

func (s *Service) ThemeSummaries(themeKey string) ([]models.ThemeSummary, error) {
	return s.store.ListThemeSummaries(themeKey)
}

type ScoreRequest struct {
	EntityID    string                    `json:"entity_id"`
	Sector      string                    `json:"sector"`
	Raw         scoring.RawCategoryScores `json:"raw"`
	SurveyTotal *float64                  `json:"survey_total,omitempty"`
}

type ScoreResult struct {
	ID       string                      `json:"id"`
	Weighted scoring.WeightedScoreResult `json:"weighted"`
	Combined scoring.CombinedScore       `json:"combined"`
}

// Score weights raw category scores for the sector, adds the optional survey
// and stores the result.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	weighted := s.combinator.ApplyWeights(req.Raw, req.Sector)
	combined := scoring.Combine(weighted, req.SurveyTotal)

	if weighted.SectorFallback {
		metrics.SectorFallbacks.Inc()
	}
	metrics.CombinedPercentage.WithLabelValues(combined.MaturityLevel).Observe(combined.Percentage)

	record := models.NewDigitalScore(req.EntityID, weighted, combined)
	if err := s.store.SaveDigitalScore(record); err != nil {
		return nil, fmt.Errorf("failed to store score: %w", err)
	}

	return &ScoreResult{ID: record.ID, Weighted: weighted, Combined: combined}, nil
}

func (s *Service) ListScores(sector string) ([]models.DigitalScore, error) {
	return s.store.ListDigitalScores(sector)
}

func (s *Service) SectorAverages() ([]models.SectorAverage, error) {
	return s.store.SectorAverages()
}
