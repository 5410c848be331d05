package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before one probe is let through.
	Cooldown      time.Duration
	OnStateChange func(name string, from, to State)
	Logger        *zap.Logger
}

// CircuitBreaker fails fast once a dependency has failed FailureThreshold times
// in a row. After Cooldown a single probe call decides whether it closes again.
type CircuitBreaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func New(name string, cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CircuitBreaker{name: name, cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open. A panic in fn counts as a
// failure and is re-raised.
func (cb *CircuitBreaker) Execute(fn func() error) (err error) {
	if err := cb.allow(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.record(false)
			panic(r)
		}
		cb.record(err == nil)
	}()

	return fn()
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.failures = 0
		cb.probing = false
		cb.transition(StateClosed)
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.probing = false
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to

	cb.cfg.Logger.Info("Circuit breaker state changed",
		zap.String("name", cb.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("failures", cb.failures),
	)
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}
