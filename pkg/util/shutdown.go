// Package util holds process plumbing shared by the binaries.
package util

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Shutdown stages, lowest runs first
const (
	PriorityProducers = 10 // stop generating work
	PriorityServers   = 20 // stop accepting requests
	PriorityDrain     = 30 // flush queued events
	PriorityClients   = 40 // close outbound connections
	PriorityStorage   = 50
)

// ShutdownResource is one step of the shutdown sequence
type ShutdownResource struct {
	Name     string
	Shutdown func(context.Context) error
	Priority int
}

// GracefulShutdown runs registered steps in priority order under one
// overall deadline. A step that panics, fails or overruns is reported and
// the sequence moves on.
type GracefulShutdown struct {
	mu        sync.Mutex
	resources []ShutdownResource
	logger    *logrus.Logger
	timeout   time.Duration
}

// NewGracefulShutdown creates a new graceful shutdown manager
func NewGracefulShutdown(logger *logrus.Logger, timeout time.Duration) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GracefulShutdown{logger: logger, timeout: timeout}
}

// Register adds a step; steps with equal priority keep registration order
func (gs *GracefulShutdown) Register(name string, priority int, fn func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.resources = append(gs.resources, ShutdownResource{Name: name, Shutdown: fn, Priority: priority})
	sort.SliceStable(gs.resources, func(i, j int) bool {
		return gs.resources[i].Priority < gs.resources[j].Priority
	})
}

// RegisterFunc adds a step that cannot fail
func (gs *GracefulShutdown) RegisterFunc(name string, priority int, fn func()) {
	gs.Register(name, priority, func(context.Context) error {
		fn()
		return nil
	})
}

// Shutdown runs every step and joins their errors
func (gs *GracefulShutdown) Shutdown(ctx context.Context) error {
	gs.mu.Lock()
	resources := append([]ShutdownResource(nil), gs.resources...)
	gs.mu.Unlock()

	gs.logger.WithField("resource_count", len(resources)).Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	var errs []error
	for _, res := range resources {
		start := time.Now()
		if err := gs.run(ctx, res); err != nil {
			gs.logger.WithError(err).WithField("resource", res.Name).Error("Error shutting down resource")
			errs = append(errs, err)
			continue
		}
		gs.logger.WithFields(logrus.Fields{
			"resource": res.Name,
			"took":     time.Since(start).Round(time.Millisecond).String(),
		}).Debug("Resource shut down")
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	gs.logger.Info("Graceful shutdown completed successfully")
	return nil
}

func (gs *GracefulShutdown) run(ctx context.Context, res ShutdownResource) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic during shutdown of %s: %v", res.Name, r)
			}
		}()
		done <- res.Shutdown(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown error for %s: %w", res.Name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout for %s: %w", res.Name, ctx.Err())
	}
}
