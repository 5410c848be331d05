package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{}))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Post("/api/v1/analyze", ok)
	app.Get("/api/v1/entities/:id/summary", EntityID(), ok)
	return app
}

func TestMiddlewareContentType(t *testing.T) {
	app := newApp()

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"json", "application/json", `{"text":"hi"}`, fiber.StatusNoContent},
		{"json with charset", "application/json; charset=utf-8", `{}`, fiber.StatusNoContent},
		{"form", "application/x-www-form-urlencoded", "text=hi", fiber.StatusUnsupportedMediaType},
		{"missing", "", `{}`, fiber.StatusUnsupportedMediaType},
		{"empty body", "application/json", "", fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMiddlewareLogsRejections(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	app := fiber.New()
	app.Use(Middleware(Config{Logger: zap.New(core)}))
	app.Post("/api/v1/analyze", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader("text=hi"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/analyze", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Rejected request with unsupported content type", entries[0].Message)
	assert.Equal(t, "/api/v1/analyze", entries[0].ContextMap()["path"])
	assert.Equal(t, "Rejected request with empty body", entries[1].Message)
}

func TestEntityIDRoute(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/entities/kachikally-pool/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/entities/-bad/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidEntityID(t *testing.T) {
	assert.True(t, ValidEntityID("lodge_1.v2"))
	assert.False(t, ValidEntityID(""))
	assert.False(t, ValidEntityID("has space"))
	assert.False(t, ValidEntityID(strings.Repeat("a", 129)))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "kora", SanitizeText("  ko\x00ra \n"))
	assert.True(t, IsValidURL("https://visitthegambia.gm/reviews"))
	assert.False(t, IsValidURL("javascript:alert(1)"))
	assert.False(t, IsValidURL("https://"))

	cfg := Config{MaxTextLength: 4}
	assert.True(t, cfg.CheckLength("four"))
	assert.False(t, cfg.CheckLength("fives"))
	assert.True(t, Config{}.CheckLength(strings.Repeat("x", 1000)))
}
