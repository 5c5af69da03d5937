package summary

import (
	"context"
	"time"

	"callmonitor/pkg/circuitbreaker"
	"callmonitor/pkg/metrics"
	"callmonitor/pkg/models"

	"github.com/sirupsen/logrus"
)

// Source values reported by TwoTier
const (
	SourcePrimary  = "llm"
	SourceFallback = "fallback"
)

// DefaultTimeout bounds a single primary attempt
const DefaultTimeout = 10 * time.Second

// TwoTier tries a primary summarizer under a timeout and circuit breaker and
// substitutes the deterministic summary on any failure
type TwoTier struct {
	primary Summarizer
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *logrus.Entry
}

// NewTwoTier builds the strategy. A nil primary always yields the fallback.
func NewTwoTier(primary Summarizer, timeout time.Duration, logger *logrus.Logger) *TwoTier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &TwoTier{
		primary: primary,
		timeout: timeout,
		logger:  logger.WithField("component", "summarizer"),
	}
	if primary != nil {
		t.breaker = circuitbreaker.NewCircuitBreaker("summarizer_"+primary.Name(), circuitbreaker.SummarizerConfig(), logger)
	}
	return t
}

// Summarize never fails; the second return value names the tier that answered
func (t *TwoTier) Summarize(ctx context.Context, transcript []models.Utterance) (models.Summary, string) {
	if t.primary == nil {
		metrics.RecordSummary(SourceFallback)
		return Summarize(transcript), SourceFallback
	}

	var result models.Summary
	source := SourcePrimary

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	t.breaker.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			s, err := t.primary.Summarize(ctx, transcript)
			if err != nil {
				return err
			}
			result = s
			return nil
		},
		func(_ context.Context, cause error) error {
			t.logger.WithError(cause).WithField("state", t.breaker.GetState().String()).Debug("Using fallback summary")
			result = Summarize(transcript)
			source = SourceFallback
			return nil
		},
	)

	metrics.RecordSummary(source)
	return result, source
}

// BreakerStats exposes the primary's circuit breaker counters
func (t *TwoTier) BreakerStats() (circuitbreaker.Statistics, bool) {
	if t.breaker == nil {
		return circuitbreaker.Statistics{}, false
	}
	return t.breaker.GetStatistics(), true
}
