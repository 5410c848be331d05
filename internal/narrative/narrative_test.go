package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/evaluation"
)

func sampleReport() *evaluation.Report {
	lodge := aggregator.NewEntitySummary("lodge-1")
	lodge.Themes["facilities"] = &aggregator.EntityThemeSummary{
		ThemeKey:         "facilities",
		DisplayName:      "Facilities & Infrastructure",
		AverageSentiment: -0.6,
		MentionCount:     3,
		SampleQuotes: []aggregator.Quote{
			{Text: "the shower was broken", Sentiment: -0.8},
			{Text: "clean pool", Sentiment: 0.5},
		},
	}
	lodge.CriticalAreas = aggregator.CriticalAreas(lodge.Themes)

	return evaluation.BuildReport([]evaluation.EntityResult{
		{EntityID: "lodge-1", Summary: lodge},
		{EntityID: "band-1", Summary: aggregator.NewEntitySummary("band-1")},
	})
}

func completionServer(t *testing.T, calls *int32, status func(n int32) int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "Facilities & Infrastructure")
		}

		w.Header().Set("Content-Type", "application/json")
		if code := status(n); code != http.StatusOK {
			w.WriteHeader(code)
			w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			return
		}
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Fix the showers at lodge-1.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 80, "completion_tokens": 9, "total_tokens": 89}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     baseURL + "/v1",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleReport())

	assert.Contains(t, prompt, "Entities assessed: 2")
	assert.Contains(t, prompt, "Entities with critical areas: 1")
	assert.Contains(t, prompt, "Critical theme: Facilities & Infrastructure (1 entities)")
	assert.Contains(t, prompt, `"the shower was broken"`)
	assert.NotContains(t, prompt, "clean pool")
	assert.NotContains(t, prompt, "Digital maturity")
}

func TestSummarize(t *testing.T) {
	var calls int32
	srv := completionServer(t, &calls, func(int32) int { return http.StatusOK })

	text, err := testClient(srv.URL).Summarize(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "Fix the showers at lodge-1.", text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSummarizeRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := completionServer(t, &calls, func(n int32) int {
		if n == 1 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})

	text, err := testClient(srv.URL).Summarize(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSummarizeDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := completionServer(t, &calls, func(int32) int { return http.StatusUnauthorized })

	_, err := testClient(srv.URL).Summarize(context.Background(), sampleReport())
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
