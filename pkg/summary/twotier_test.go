package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"callmonitor/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubSummarizer struct {
	summary models.Summary
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubSummarizer) Name() string { return "stub" }

func (s *stubSummarizer) Summarize(ctx context.Context, _ []models.Utterance) (models.Summary, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.Summary{}, ctx.Err()
		}
	}
	return s.summary, s.err
}

var sample = []models.Utterance{
	{Speaker: models.SpeakerCustomer, Text: "hi", Analysis: models.Analysis{Sentiment: -0.5, Intent: models.IntentComplaint, Flags: []models.Flag{}}},
}

func TestTwoTierPrimarySuccess(t *testing.T) {
	primary := &stubSummarizer{summary: models.Summary{PrimaryIssue: "From model"}}
	tt := NewTwoTier(primary, time.Second, logrus.New())

	s, source := tt.Summarize(context.Background(), sample)
	assert.Equal(t, SourcePrimary, source)
	assert.Equal(t, "From model", s.PrimaryIssue)
}

func TestTwoTierFallsBackOnError(t *testing.T) {
	primary := &stubSummarizer{err: errors.New("bad gateway")}
	tt := NewTwoTier(primary, time.Second, logrus.New())

	s, source := tt.Summarize(context.Background(), sample)
	assert.Equal(t, SourceFallback, source)
	assert.Equal(t, Summarize(sample), s)
}

func TestTwoTierFallsBackOnTimeout(t *testing.T) {
	primary := &stubSummarizer{delay: time.Second}
	tt := NewTwoTier(primary, 20*time.Millisecond, logrus.New())

	start := time.Now()
	_, source := tt.Summarize(context.Background(), sample)
	assert.Equal(t, SourceFallback, source)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTwoTierStopsCallingBrokenPrimary(t *testing.T) {
	primary := &stubSummarizer{err: errors.New("down")}
	tt := NewTwoTier(primary, time.Second, logrus.New())

	for i := 0; i < 6; i++ {
		_, source := tt.Summarize(context.Background(), sample)
		assert.Equal(t, SourceFallback, source)
	}
	assert.Equal(t, 3, primary.calls)

	stats, ok := tt.BreakerStats()
	assert.True(t, ok)
	assert.Equal(t, "open", stats.State)
}

func TestTwoTierWithoutPrimary(t *testing.T) {
	tt := NewTwoTier(nil, 0, logrus.New())
	s, source := tt.Summarize(context.Background(), nil)
	assert.Equal(t, SourceFallback, source)
	assert.Equal(t, Empty(), s)
	_, ok := tt.BreakerStats()
	assert.False(t, ok)
}
