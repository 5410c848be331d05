package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// permanentError stops Do from retrying.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	Logger         *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
		Logger:         zap.NewNop(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// Delay returns the un-jittered wait after the given failed attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
		if d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	return time.Duration(d)
}

// Do runs op until it succeeds, returns a Permanent error, the attempts run
// out, or ctx is done. The attempt number passed to op starts at 1.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context, attempt int) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				cfg.Logger.Info("Operation succeeded after retry", zap.Int("attempt", attempt))
			}
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			cfg.Logger.Debug("Error not retryable", zap.Error(p.err), zap.Int("attempt", attempt))
			return p.err
		}

		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := jitter(cfg.Delay(attempt), cfg.JitterFraction)
		cfg.Logger.Warn("Operation failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("delay", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func DoWithResult[T any](ctx context.Context, cfg Config, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		var err error
		result, err = op(ctx, attempt)
		return err
	})
	return result, err
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * fraction
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread)
}
