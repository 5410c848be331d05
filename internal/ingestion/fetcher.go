package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/metrics"
	"github.com/gambia-creative/assessment/pkg/circuitbreaker"
	"github.com/gambia-creative/assessment/pkg/logger"
	"github.com/gambia-creative/assessment/pkg/retry"
)

const maxPageBytes = 5 << 20

var (
	ErrInvalidURL  = errors.New("invalid page url")
	ErrBlockedHost = errors.New("page host is a loopback, private or link-local address")
)

type FetcherConfig struct {
	Timeout     time.Duration
	UserAgent   string
	MaxAttempts int
	RetryDelay  time.Duration
	// FailureThreshold consecutive failures against one host open its circuit.
	FailureThreshold int
	Cooldown         time.Duration
	// AllowPrivateHosts permits fetching from loopback and private networks.
	AllowPrivateHosts bool
}

// Fetcher downloads pages with retries and one circuit breaker per host.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	retryConfig retry.Config
	cfg         FetcherConfig

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "assessment-bot/1.0"
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = cfg.MaxAttempts
	if cfg.RetryDelay > 0 {
		retryConfig.InitialDelay = cfg.RetryDelay
	}
	retryConfig.Logger = logger.GetLogger()

	return &Fetcher{
		httpClient:  &http.Client{Timeout: cfg.Timeout, Transport: newTransport(cfg)},
		userAgent:   cfg.UserAgent,
		retryConfig: retryConfig,
		cfg:         cfg,
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// newTransport checks every dialled address after DNS resolution, so redirects
// and rebinding hostnames are covered too.
func newTransport(cfg FetcherConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.AllowPrivateHosts {
		return transport
	}

	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || blockedIP(ip) {
				return fmt.Errorf("%w: %s", ErrBlockedHost, host)
			}
			return nil
		},
	}
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return transport
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast()
}

func (f *Fetcher) breaker(host string) *circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[host]
	if !ok {
		cb = circuitbreaker.New(host, circuitbreaker.Config{
			FailureThreshold: f.cfg.FailureThreshold,
			Cooldown:         f.cfg.Cooldown,
			Logger:           logger.GetLogger(),
			OnStateChange: func(name string, _, to circuitbreaker.State) {
				metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			},
		})
		f.breakers[host] = cb
	}
	return cb
}

// Fetch returns the body of an http(s) page. Client errors (4xx) are not
// retried; network errors and 5xx responses are.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}

	cb := f.breaker(u.Host)

	body, err := retry.DoWithResult(ctx, f.retryConfig, func(ctx context.Context, attempt int) (string, error) {
		var body string
		var permanent error
		err := cb.Execute(func() error {
			var err error
			body, err = f.get(ctx, pageURL)
			if retry.IsPermanent(err) {
				// 4xx responses do not count against the host
				permanent = err
				return nil
			}
			return err
		})
		if permanent != nil {
			return "", permanent
		}
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return "", retry.Permanent(err)
		}
		return body, err
	})

	if err != nil {
		metrics.PageFetches.WithLabelValues("error").Inc()
		logger.Warn("Page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", err
	}

	metrics.PageFetches.WithLabelValues("ok").Inc()
	logger.Info("Page fetched", zap.String("url", pageURL), zap.Int("bytes", len(body)))
	return body, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.Code)
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedHost) {
			return "", retry.Permanent(fmt.Errorf("failed to fetch page: %w", err))
		}
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return "", retry.Permanent(&StatusError{Code: resp.StatusCode})
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return string(data), nil
}
