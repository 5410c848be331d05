// Package narrative asks a chat model for a short prose reading of a portfolio
// report. It only sees figures and quotes the engine already computed; nothing
// it returns feeds back into scores or summaries.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/evaluation"
	"github.com/gambia-creative/assessment/pkg/circuitbreaker"
	"github.com/gambia-creative/assessment/pkg/logger"
	"github.com/gambia-creative/assessment/pkg/retry"
)

const (
	defaultModel      = "gpt-4o-mini"
	maxPromptLength   = 15000
	maxThemes         = 5
	maxQuotesPerTheme = 3
)

var ErrEmptyCompletion = errors.New("model returned no choices")

const systemPrompt = `You write short briefings for tourism and creative-industry development officers in The Gambia.
Use only the figures and quotes provided. Do not invent numbers. Name the weakest themes first and
suggest one concrete improvement for each. Keep it under 200 words.`

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, e.g. for an OpenAI-compatible gateway.
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = cfg.MaxAttempts
	if cfg.RetryDelay > 0 {
		retryConfig.InitialDelay = cfg.RetryDelay
	}
	retryConfig.Logger = logger.GetLogger()

	logger.Info("Narrative client initialized", zap.String("model", cfg.Model))

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		cb: circuitbreaker.New("narrative", circuitbreaker.Config{
			FailureThreshold: 3,
			Cooldown:         time.Minute,
			Logger:           logger.GetLogger(),
		}),
		retryConfig: retryConfig,
	}
}

// Summarize returns the model's briefing for report.
func (c *Client) Summarize(ctx context.Context, report *evaluation.Report) (string, error) {
	return c.complete(ctx, BuildPrompt(report))
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	return retry.DoWithResult(ctx, c.retryConfig, func(ctx context.Context, attempt int) (string, error) {
		var content string
		err := c.cb.Execute(func() error {
			resp, err := c.client.CreateChatCompletion(ctx, req)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return ErrEmptyCompletion
			}

			logger.Debug("Narrative completion generated",
				zap.Int("attempt", attempt),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)
			content = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		})
		if err != nil {
			if permanent(err) {
				return "", retry.Permanent(fmt.Errorf("failed to create completion: %w", err))
			}
			return "", fmt.Errorf("failed to create completion: %w", err)
		}
		return content, nil
	})
}

// permanent reports client errors other than rate limiting, and an open circuit.
func permanent(err error) bool {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		code := reqErr.HTTPStatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}

// BuildPrompt lays out the report's figures and, for the most common critical
// themes, the most polarized quotes of the entities flagged on them.
func BuildPrompt(report *evaluation.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Entities assessed: %d\n", report.TotalEntities)
	fmt.Fprintf(&b, "Overall sentiment: %d positive, %d neutral, %d negative (average %+.2f on -1..1)\n",
		report.PositiveCount, report.NeutralCount, report.NegativeCount, report.AvgOverallSentiment)
	if report.AvgRating > 0 {
		fmt.Fprintf(&b, "Average rating: %.2f / 5\n", report.AvgRating)
	}
	if report.ScoredEntities > 0 {
		fmt.Fprintf(&b, "Digital maturity: %d entities scored, average %.1f%%\n", report.ScoredEntities, report.AvgPercentage)
	}
	fmt.Fprintf(&b, "Entities with critical areas: %d\n", report.EntitiesWithCriticalAreas)

	themes := report.CriticalThemes
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	for _, tc := range themes {
		fmt.Fprintf(&b, "\nCritical theme: %s (%d entities)\n", tc.DisplayName, tc.Entities)
		for _, q := range themeQuotes(report, tc.ThemeKey) {
			fmt.Fprintf(&b, "- %q\n", q)
		}
	}

	prompt := b.String()
	if len(prompt) > maxPromptLength {
		prompt = prompt[:maxPromptLength]
	}
	return prompt
}

func themeQuotes(report *evaluation.Report, themeKey string) []string {
	var quotes []string
	for _, r := range report.Entities {
		if r.Summary == nil {
			continue
		}
		theme, ok := r.Summary.Themes[themeKey]
		if !ok {
			continue
		}
		for _, q := range theme.SampleQuotes {
			if q.Sentiment >= 0 {
				continue
			}
			quotes = append(quotes, q.Text)
			if len(quotes) == maxQuotesPerTheme {
				return quotes
			}
		}
	}
	return quotes
}
