package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestAnalysisKey(t *testing.T) {
	base := AnalysisKey("v1", "kora music", intPtr(4))

	assert.True(t, strings.HasPrefix(base, "analysis:"))
	assert.Equal(t, base, AnalysisKey("v1", "kora music", intPtr(4)))
	assert.NotEqual(t, base, AnalysisKey("v2", "kora music", intPtr(4)))
	assert.NotEqual(t, base, AnalysisKey("v1", "kora music", intPtr(5)))
	assert.NotEqual(t, base, AnalysisKey("v1", "kora music", nil))
	assert.NotEqual(t, base, AnalysisKey("v1", "kora  music", intPtr(4)))
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "summary:lodge-1", SummaryKey("lodge-1"))
}

// newLiveClient connects to ASSESSMENT_TEST_REDIS_HOST (default localhost) and
// skips the test when no server answers.
func newLiveClient(t *testing.T) *Client {
	t.Helper()
	host := os.Getenv("ASSESSMENT_TEST_REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	c, err := NewClient(host, 6379, "", 15, time.Minute)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newLiveClient(t)
	ctx := context.Background()

	type payload struct {
		Score float64 `json:"score"`
	}

	key := AnalysisKey("test", t.Name(), nil)
	require.NoError(t, c.SetAnalysis(ctx, key, payload{Score: 0.4}))

	var got payload
	hit, err := c.GetAnalysis(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 0.4, got.Score)

	require.NoError(t, c.SetSummary(ctx, "roundtrip", payload{Score: -0.2}))
	hit, err = c.GetSummary(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, c.DeleteSummary(ctx, "roundtrip"))
	hit, err = c.GetSummary(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.InvalidateAnalyses(ctx))
	hit, err = c.GetAnalysis(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
