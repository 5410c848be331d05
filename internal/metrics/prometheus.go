package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_analyses_total",
			Help: "Total text units analyzed",
		},
		[]string{"source"},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_analysis_duration_seconds",
			Help:    "Theme-sentiment analysis duration per text unit",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	TextUnitsFolded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_text_units_folded_total",
			Help: "Total text units folded into entity summaries",
		},
	)

	SummariesFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_summaries_finalized_total",
			Help: "Total entity summaries finalized",
		},
	)

	CriticalAreasDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_critical_areas_total",
			Help: "Critical areas detected per theme",
		},
		[]string{"theme"},
	)

	SectorFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_sector_fallbacks_total",
			Help: "Scores computed with the default weights because the sector was unknown",
		},
	)

	CombinedPercentage = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_combined_percentage",
			Help:    "Distribution of combined digital maturity percentages",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"maturity_level"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	PageFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_page_fetches_total",
			Help: "Total ingestion page fetches",
		},
		[]string{"status"},
	)

	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assessment_circuit_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(AnalysesTotal)
		prometheus.MustRegister(AnalysisDuration)
		prometheus.MustRegister(TextUnitsFolded)
		prometheus.MustRegister(SummariesFinalized)
		prometheus.MustRegister(CriticalAreasDetected)
		prometheus.MustRegister(SectorFallbacks)
		prometheus.MustRegister(CombinedPercentage)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(PageFetches)
		prometheus.MustRegister(CircuitState)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
