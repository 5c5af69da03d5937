package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("test", &Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Second,
		RequestTimeout:   time.Second,
	}, logrus.New())
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	boom := errors.New("boom")
	failing := func(context.Context) error { return boom }

	assert.ErrorIs(t, cb.Execute(context.Background(), failing), boom)
	assert.False(t, cb.IsOpen())
	assert.ErrorIs(t, cb.Execute(context.Background(), failing), boom)
	assert.True(t, cb.IsOpen())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, IsCircuitBreakerError(err))
	assert.False(t, called)
	assert.Equal(t, int64(1), cb.GetStatistics().RejectedRequests)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	failing := func(context.Context) error { return errors.New("down") }
	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), failing)
	require.True(t, cb.IsOpen())

	clock = clock.Add(2 * time.Second)
	require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	failing := func(context.Context) error { return errors.New("down") }
	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), failing)

	clock = clock.Add(2 * time.Second)
	cb.Execute(context.Background(), failing)
	assert.True(t, cb.IsOpen())
}

func TestExecuteWithFallback(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	var causes []error

	for i := 0; i < 3; i++ {
		err := cb.ExecuteWithFallback(context.Background(),
			func(context.Context) error { return errors.New("primary failed") },
			func(_ context.Context, cause error) error {
				causes = append(causes, cause)
				return nil
			})
		require.NoError(t, err)
	}

	require.Len(t, causes, 3)
	assert.False(t, IsCircuitBreakerError(causes[0]))
	assert.True(t, IsCircuitBreakerError(causes[2]))
}

func TestRequestTimeoutApplied(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	failing := func(context.Context) error { return errors.New("down") }
	cb.Execute(context.Background(), failing)
	cb.Execute(context.Background(), failing)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Zero(t, cb.GetStatistics().TotalRequests)
}
