package circuitbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
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

// Config holds circuit breaker configuration
type Config struct {
	// Consecutive failures before the circuit opens
	FailureThreshold int64 `json:"failure_threshold"`

	// Consecutive successes in half-open state before the circuit closes
	SuccessThreshold int64 `json:"success_threshold"`

	// How long the circuit stays open before a trial request
	Timeout time.Duration `json:"timeout"`

	// Cap for the exponential open timeout
	MaxTimeout time.Duration `json:"max_timeout"`

	// Deadline applied to calls whose context has none
	RequestTimeout time.Duration `json:"request_timeout"`

	ExponentialBackoff bool `json:"exponential_backoff"`
}

// DefaultConfig returns default circuit breaker configuration
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:   5,
		SuccessThreshold:   2,
		Timeout:            60 * time.Second,
		MaxTimeout:         300 * time.Second,
		RequestTimeout:     30 * time.Second,
		ExponentialBackoff: true,
	}
}

// Statistics is a point-in-time copy of the breaker counters
type Statistics struct {
	State                string    `json:"state"`
	TotalRequests        int64     `json:"total_requests"`
	SuccessfulRequests   int64     `json:"successful_requests"`
	FailedRequests       int64     `json:"failed_requests"`
	RejectedRequests     int64     `json:"rejected_requests"`
	ConsecutiveFailures  int64     `json:"consecutive_failures"`
	ConsecutiveSuccesses int64     `json:"consecutive_successes"`
	LastFailureTime      time.Time `json:"last_failure_time"`
	LastSuccessTime      time.Time `json:"last_success_time"`
	StateTransitions     int64     `json:"state_transitions"`
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	name        string
	logger      *logrus.Entry
	config      *Config
	mutex       sync.Mutex
	state       State
	nextAttempt time.Time
	stats       Statistics
	now         func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config *Config, logger *logrus.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}

	return &CircuitBreaker{
		name:   name,
		logger: logger.WithField("circuit_breaker", name),
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allowRequest() {
		return NewCircuitBreakerOpenError(cb.name, StateOpen)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && cb.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cb.config.RequestTimeout)
		defer cancel()
	}

	if err := fn(ctx); err != nil {
		cb.recordFailure(err)
		return err
	}

	cb.recordSuccess()
	return nil
}

// ExecuteWithFallback runs fn, and runs fallback when fn fails or the
// circuit rejects the call
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, fn func(ctx context.Context) error, fallback func(ctx context.Context, cause error) error) error {
	err := cb.Execute(ctx, fn)
	if err == nil || fallback == nil {
		return err
	}
	if IsCircuitBreakerError(err) {
		cb.logger.Debug("Circuit breaker open, executing fallback")
	}
	return fallback(ctx, err)
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if cb.now().After(cb.nextAttempt) {
			cb.setState(StateHalfOpen)
			return true
		}
		cb.stats.RejectedRequests++
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.stats.TotalRequests++
	cb.stats.SuccessfulRequests++
	cb.stats.ConsecutiveFailures = 0
	cb.stats.ConsecutiveSuccesses++
	cb.stats.LastSuccessTime = cb.now()

	if cb.state == StateHalfOpen && cb.stats.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.stats.TotalRequests++
	cb.stats.FailedRequests++
	cb.stats.ConsecutiveFailures++
	cb.stats.ConsecutiveSuccesses = 0
	cb.stats.LastFailureTime = cb.now()

	// a failed trial request reopens immediately
	if cb.state == StateHalfOpen || cb.stats.ConsecutiveFailures >= cb.config.FailureThreshold {
		cb.setState(StateOpen)
	}

	cb.logger.WithError(err).WithFields(logrus.Fields{
		"failures": cb.stats.ConsecutiveFailures,
		"state":    cb.state.String(),
	}).Debug("Circuit breaker recorded failure")
}

// setState must be called with the mutex held
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	switch newState {
	case StateOpen:
		timeout := cb.config.Timeout
		if cb.config.ExponentialBackoff {
			shift := cb.stats.ConsecutiveFailures - cb.config.FailureThreshold
			if shift < 0 {
				shift = 0
			}
			if shift > 10 {
				shift = 10
			}
			timeout = cb.config.Timeout * time.Duration(int64(1)<<uint(shift))
			if cb.config.MaxTimeout > 0 && timeout > cb.config.MaxTimeout {
				timeout = cb.config.MaxTimeout
			}
		}
		cb.nextAttempt = cb.now().Add(timeout)
	case StateClosed:
		cb.nextAttempt = time.Time{}
	case StateHalfOpen:
		cb.stats.ConsecutiveSuccesses = 0
	}

	cb.stats.StateTransitions++

	cb.logger.WithFields(logrus.Fields{
		"from_state": oldState.String(),
		"to_state":   newState.String(),
	}).Info("Circuit breaker state changed")
}

// GetState returns the current circuit breaker state
func (cb *CircuitBreaker) GetState() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// GetStatistics returns a copy of the breaker counters
func (cb *CircuitBreaker) GetStatistics() Statistics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	out := cb.stats
	out.State = cb.state.String()
	return out
}

// Reset closes the circuit and clears all counters
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.setState(StateClosed)
	cb.stats = Statistics{}
	cb.logger.Info("Circuit breaker reset")
}

// IsOpen returns true if the circuit is open
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.GetState() == StateOpen
}
