package util

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestShutdownRunsInPriorityOrder(t *testing.T) {
	gs := NewGracefulShutdown(quietLogger(), time.Second)

	var mu sync.Mutex
	var order []string
	step := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	gs.RegisterFunc("store", PriorityStorage, step("store"))
	gs.RegisterFunc("engine", PriorityProducers, step("engine"))
	gs.RegisterFunc("http", PriorityServers, step("http"))
	gs.RegisterFunc("hub", PriorityServers, step("hub"))

	require.NoError(t, gs.Shutdown(context.Background()))
	assert.Equal(t, []string{"engine", "http", "hub", "store"}, order)
}

func TestShutdownContinuesPastFailures(t *testing.T) {
	gs := NewGracefulShutdown(quietLogger(), time.Second)
	boom := errors.New("boom")
	ran := false

	gs.Register("fails", 1, func(context.Context) error { return boom })
	gs.RegisterFunc("panics", 2, func() { panic("bad") })
	gs.RegisterFunc("last", 3, func() { ran = true })

	err := gs.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "panic during shutdown of panics")
	assert.True(t, ran)
}

func TestShutdownTimeout(t *testing.T) {
	gs := NewGracefulShutdown(quietLogger(), 20*time.Millisecond)
	gs.Register("stuck", 1, func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	err := gs.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
