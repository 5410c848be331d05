package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

// HeadersMiddleware sets response hardening headers for a JSON API. API
// responses are never cached.
func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	csp := "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	if len(cfg.AllowedOrigins) > 0 {
		csp += "; connect-src 'self' " + strings.Join(cfg.AllowedOrigins, " ")
	}

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", csp)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if strings.HasPrefix(c.Path(), "/api/") {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}

		return c.Next()
	}
}
