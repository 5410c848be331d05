package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestMetricsEndpoint(t *testing.T) {
	Init()
	SectorFallbacks.Inc()
	CacheHits.WithLabelValues("analysis").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "assessment_sector_fallbacks_total")
	assert.Contains(t, string(body), `assessment_cache_hits_total{cache_type="analysis"}`)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PageFetches.WithLabelValues("ok"))
	PageFetches.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PageFetches.WithLabelValues("ok")))
}
