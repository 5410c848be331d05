package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

type Config struct {
	// MaxTextLength bounds any single text field, in bytes.
	MaxTextLength int
	Logger        *zap.Logger
}

// Middleware rejects write requests that are not JSON and entity routes
// whose id is malformed.
func Middleware(cfg Config) fiber.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
				cfg.Logger.Warn("Rejected request with unsupported content type",
					zap.String("path", c.Path()),
					zap.String("content_type", c.Get(fiber.HeaderContentType)),
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "content type must be application/json",
				})
			}
			if len(c.Body()) == 0 {
				cfg.Logger.Warn("Rejected request with empty body",
					zap.String("path", c.Path()),
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "request body is required",
				})
			}
		}

		return c.Next()
	}
}

// EntityID validates the :id route parameter.
func EntityID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ValidEntityID(c.Params("id")) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid entity id",
			})
		}
		return c.Next()
	}
}

func ValidEntityID(id string) bool {
	return entityIDPattern.MatchString(id)
}

// SanitizeText trims surrounding space and strips NUL bytes.
func SanitizeText(input string) string {
	return strings.TrimSpace(strings.ReplaceAll(input, "\x00", ""))
}

func IsValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != ""
}

// CheckLength reports whether text fits the configured limit.
func (cfg Config) CheckLength(text string) bool {
	return cfg.MaxTextLength <= 0 || len(text) <= cfg.MaxTextLength
}
