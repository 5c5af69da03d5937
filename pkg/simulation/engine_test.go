package simulation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/events"
	"callmonitor/pkg/models"
	"callmonitor/pkg/store"
	"callmonitor/pkg/summary"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type fixture struct {
	engine *Engine
	store  store.Store
	events *events.Recorder
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testConfig(numCalls int) Config {
	cfg := DefaultConfig()
	cfg.NumCalls = numCalls
	cfg.IssueFrequency = 0
	cfg.MessageInterval = MaxMessageInterval
	return cfg
}

func newFixture(t *testing.T, cfg Config, st store.Store, summarizer FinalSummarizer) *fixture {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	rec := &events.Recorder{}
	clock := &tickingClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
	e, err := NewEngine(quietLogger(), st, rec, summarizer, cfg, Options{Workers: 4, Seed: 42, Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	return &fixture{engine: e, store: st, events: rec}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.seedAgents(context.Background()))
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, testConfig(5), nil, nil)
	ctx := context.Background()

	require.NoError(t, f.engine.Start(ctx))
	require.NoError(t, f.engine.Start(ctx))

	assert.True(t, f.engine.IsRunning())
	assert.Equal(t, 5, f.engine.ActiveCount())
	assert.Len(t, f.events.OfType(events.CallStarted), 5)

	agents, err := f.store.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, AgentCatalogSize())

	f.engine.Stop()
	f.engine.Stop()
	assert.False(t, f.engine.IsRunning())
	assert.Equal(t, 5, f.engine.ActiveCount())

	// a restart resumes the surviving calls instead of creating new ones
	require.NoError(t, f.engine.Start(ctx))
	assert.Equal(t, 5, f.engine.ActiveCount())
	assert.Len(t, f.events.OfType(events.CallStarted), 5)
}

func TestSeededAgentsAreWithinRanges(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	f.seed(t)
	f.seed(t)

	agents, err := f.store.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, AgentCatalogSize())
	assert.Equal(t, "AGT-001", agents[0].AgentID)
	assert.Equal(t, "Sarah Mitchell", agents[0].Name)

	for _, a := range agents {
		assert.Equal(t, models.AgentAvailable, a.Status)
		assert.Empty(t, a.CurrentCallID)
		assert.GreaterOrEqual(t, a.PerformanceToday.CallsHandled, 5)
		assert.LessOrEqual(t, a.PerformanceToday.CallsHandled, 20)
		assert.GreaterOrEqual(t, a.PerformanceToday.AvgHandleTime, 180.0)
		assert.LessOrEqual(t, a.PerformanceToday.AvgHandleTime, 420.0)
		assert.GreaterOrEqual(t, a.PerformanceMonthly.CallsHandled, 200)
		assert.LessOrEqual(t, a.PerformanceMonthly.CallsHandled, 500)
		assert.GreaterOrEqual(t, a.PerformanceMonthly.QualityScore, 70.0)
		assert.LessOrEqual(t, a.PerformanceMonthly.QualityScore, 98.0)
	}
}

func TestSeedFreesAgentsLeftOnCall(t *testing.T) {
	st := store.NewMemoryStore()
	f := newFixture(t, testConfig(0), st, nil)
	f.seed(t)

	ctx := context.Background()
	require.NoError(t, st.UpdateAgent(ctx, "AGT-003", store.AgentUpdate{Status: models.AgentOnCall, CurrentCallID: "CALL-OLD"}))
	f.seed(t)

	a, err := st.GetAgent(ctx, "AGT-003")
	require.NoError(t, err)
	assert.Equal(t, models.AgentAvailable, a.Status)
}

func TestUnknownTriggerHasNoSideEffects(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	f.seed(t)

	_, err := f.engine.TriggerEvent(context.Background(), "unknown_kind")
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrUnknownTrigger))

	assert.Equal(t, 0, f.engine.ActiveCount())
	n, err := f.store.CountCalls(context.Background(), store.CallFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, f.events.Events())
}

func TestTriggerEventCreatesScriptedCall(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	f.seed(t)
	ctx := context.Background()

	callID, err := f.engine.TriggerEvent(ctx, TriggerAngryCustomer)
	require.NoError(t, err)
	assert.Regexp(t, `^CALL-20260301-[0-9A-F]{6}$`, callID)
	assert.Equal(t, 1, f.engine.ActiveCount())

	call, err := f.store.GetCall(ctx, callID)
	require.NoError(t, err)
	assert.Equal(t, models.CallActive, call.Status)
	assert.Equal(t, "angry_customer", call.Scenario)
	assert.Equal(t, "voice", call.Channel)
	assert.Equal(t, 80, call.HealthScore)
	assert.Equal(t, "Angry Customer", call.AISummary.PrimaryIssue)
	assert.Equal(t, []string{"angry_customer"}, call.AISummary.TopicsDiscussed)
	assert.Empty(t, call.Transcript)
	assert.Regexp(t, `^CUST-[0-9a-f]{8}$`, call.Customer.ID)
	assert.Regexp(t, `^\+1-555-\d{3}-\d{4}$`, call.Customer.Phone)

	agent, err := f.store.GetAgent(ctx, call.Agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentOnCall, agent.Status)
	assert.Equal(t, callID, agent.CurrentCallID)

	started := f.events.OfType(events.CallStarted)
	require.Len(t, started, 1)
	doc, ok := started[0].Data.(*models.Call)
	require.True(t, ok)
	assert.Equal(t, callID, doc.CallID)
	assert.NotNil(t, doc.Transcript)
	assert.NotNil(t, doc.AlertsTriggered)
}

func TestCallPlaysScriptThenEnds(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	f.seed(t)
	ctx := context.Background()

	script, _ := TriggerScript(TriggerEscalationRequest)
	callID, err := f.engine.TriggerEvent(ctx, TriggerEscalationRequest)
	require.NoError(t, err)

	for i := 1; i <= len(script.Messages); i++ {
		f.engine.runCycle(ctx)

		call, err := f.store.GetCall(ctx, callID)
		require.NoError(t, err)
		require.Equal(t, models.CallActive, call.Status)
		require.Len(t, call.Transcript, i)
		assert.Equal(t, healthScore(call.AvgSentiment()), call.HealthScore)
		assert.Equal(t, "Escalation Request", call.AISummary.PrimaryIssue)
		assert.NotContains(t, call.Transcript[i-1].Text, "{agent}")
		assert.NotContains(t, call.Transcript[i-1].Text, "{customer}")
	}

	// the exhausted call ends on the next cycle
	f.engine.runCycle(ctx)
	call, err := f.store.GetCall(ctx, callID)
	require.NoError(t, err)
	assert.Equal(t, models.CallEnded, call.Status)
	assert.Len(t, call.Transcript, len(script.Messages))
	require.NotNil(t, call.EndedAt)
	require.NotNil(t, call.Resolution)
	assert.Greater(t, call.DurationSeconds, 0)
	if call.Resolution.ResolutionType == models.ResolutionSolved {
		assert.True(t, call.Resolution.Resolved)
		assert.LessOrEqual(t, call.Resolution.CustomerSatisfaction, 5)
	} else {
		assert.False(t, call.Resolution.Resolved)
		assert.LessOrEqual(t, call.Resolution.CustomerSatisfaction, 3)
	}
	assert.GreaterOrEqual(t, call.Resolution.CustomerSatisfaction, 1)
	assert.Equal(t, 0, f.engine.ActiveCount())

	agent, err := f.store.GetAgent(ctx, call.Agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentAvailable, agent.Status)

	ended := f.events.OfType(events.CallEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, callID, ended[0].Data.(events.CallEndedData).CallID)
	assert.Len(t, f.events.OfType(events.CallUpdate), len(script.Messages))

	// an ended call never advances again
	f.engine.runCycle(ctx)
	call, err = f.store.GetCall(ctx, callID)
	require.NoError(t, err)
	assert.Len(t, call.Transcript, len(script.Messages))
	assert.Len(t, f.events.OfType(events.CallEnded), 1)
}

func TestAlertsFollowFlags(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	f.seed(t)
	ctx := context.Background()

	script, _ := TriggerScript(TriggerComplianceIssue)
	callID, err := f.engine.TriggerEvent(ctx, TriggerComplianceIssue)
	require.NoError(t, err)
	for range script.Messages {
		f.engine.runCycle(ctx)
	}

	call, err := f.store.GetCall(ctx, callID)
	require.NoError(t, err)

	flags := 0
	for _, u := range call.Transcript {
		flags += len(u.Analysis.Flags)
	}
	require.Greater(t, flags, 0)

	alerts, err := f.store.ListAlerts(ctx, store.AlertFilter{CallID: callID}, store.ListOptions{Sort: store.OldestFirst})
	require.NoError(t, err)
	assert.Len(t, alerts, flags)
	assert.Len(t, call.AlertsTriggered, flags)
	assert.Len(t, f.events.OfType(events.AlertNew), flags)

	sawCompliance := false
	for _, a := range alerts {
		assert.Regexp(t, `^ALT-[0-9a-f]{8}$`, a.AlertID)
		assert.Equal(t, models.AlertActive, a.Status)
		assert.Contains(t, a.Message, callID)
		assert.Contains(t, a.Details.Context, "Customer: ")
		assert.LessOrEqual(t, len([]rune(a.Details.TriggerPhrase)), 100)
		if a.AlertType == models.AlertCompliance {
			sawCompliance = true
			assert.Equal(t, models.SeverityCritical, a.Severity)
		}
	}
	assert.True(t, sawCompliance)
}

func TestUpdateConfigConvergesWithoutSharedAgents(t *testing.T) {
	f := newFixture(t, testConfig(4), nil, nil)
	ctx := context.Background()
	require.NoError(t, f.engine.Start(ctx))

	_, err := f.engine.UpdateConfig(ctx, ConfigUpdate{NumCalls: intPtr(15)})
	require.NoError(t, err)
	assert.Equal(t, 15, f.engine.ActiveCount())

	active, err := f.store.ListCalls(ctx, store.CallFilter{Status: models.CallActive}, store.ListOptions{OmitTranscript: true})
	require.NoError(t, err)
	require.Len(t, active, 15)
	seen := make(map[string]bool)
	for _, c := range active {
		assert.False(t, seen[c.Agent.ID], "agent %s assigned twice", c.Agent.ID)
		seen[c.Agent.ID] = true
	}

	agents, err := f.store.ListAgents(ctx)
	require.NoError(t, err)
	onCall := 0
	for _, a := range agents {
		if a.Status == models.AgentOnCall {
			onCall++
		}
	}
	assert.Equal(t, 15, onCall)

	newest := make(map[string]bool)
	for _, c := range active[:3] {
		newest[c.CallID] = true
	}

	_, err = f.engine.UpdateConfig(ctx, ConfigUpdate{NumCalls: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, f.engine.ActiveCount())

	remaining, err := f.store.ListCalls(ctx, store.CallFilter{Status: models.CallActive}, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	for _, c := range remaining {
		assert.True(t, newest[c.CallID], "oldest calls should end first")
	}
	assert.Len(t, f.events.OfType(events.CallEnded), 12)
}

func TestUpdateConfigWhileStoppedAppliesOnNextCycle(t *testing.T) {
	f := newFixture(t, testConfig(5), nil, nil)
	ctx := context.Background()

	require.NoError(t, f.engine.Start(ctx))
	require.Equal(t, 5, f.engine.ActiveCount())
	f.engine.Stop()

	_, err := f.engine.UpdateConfig(ctx, ConfigUpdate{NumCalls: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 5, f.engine.ActiveCount())

	require.NoError(t, f.engine.Start(ctx))
	require.Eventually(t, func() bool { return f.engine.ActiveCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	n, err := f.store.CountCalls(ctx, store.CallFilter{Status: models.CallActive})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, agentsOnCall(t, f.store))
	assert.Len(t, f.events.OfType(events.CallEnded), 3)
}

func TestTriggerWhileStoppedWaitsForStart(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	ctx := context.Background()

	callID, err := f.engine.TriggerEvent(ctx, TriggerAngryCustomer)
	require.NoError(t, err)
	assert.False(t, f.engine.IsRunning())
	assert.Equal(t, 1, f.engine.ActiveCount())

	agents, err := f.store.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, AgentCatalogSize())
	assert.Equal(t, 1, agentsOnCall(t, f.store))

	// a triggered call above target is not trimmed by the cycle
	f.engine.runCycle(ctx)
	assert.Equal(t, 1, f.engine.ActiveCount())
	call, err := f.store.GetCall(ctx, callID)
	require.NoError(t, err)
	assert.Equal(t, models.CallActive, call.Status)
	assert.Len(t, call.Transcript, 1)
}

func TestStopLeavesCallsConsistent(t *testing.T) {
	cfg := testConfig(20)
	cfg.MessageInterval = MinMessageInterval
	f := newFixture(t, cfg, nil, nil)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, f.engine.Start(ctx))
		time.Sleep(time.Duration(i%5) * 5 * time.Millisecond)
		f.engine.Stop()

		active := f.engine.activeCalls()
		for _, cs := range active {
			cs.mu.Lock()
			cursor, lines, ended := cs.cursor, len(cs.transcript), cs.ended
			cs.mu.Unlock()
			require.False(t, ended, "iteration %d", i)
			require.Equal(t, lines, cursor, "iteration %d call %s", i, cs.id)

			call, err := f.store.GetCall(ctx, cs.id)
			require.NoError(t, err)
			require.Equal(t, models.CallActive, call.Status)
			require.Len(t, call.Transcript, lines, "iteration %d call %s", i, cs.id)
		}

		n, err := f.store.CountCalls(ctx, store.CallFilter{Status: models.CallActive})
		require.NoError(t, err)
		require.Equal(t, len(active), n, "iteration %d", i)
		require.Equal(t, len(active), agentsOnCall(t, f.store), "iteration %d", i)
	}
}

func TestStopInterruptsStaggeredStart(t *testing.T) {
	st := store.NewMemoryStore()
	e, err := NewEngine(quietLogger(), st, &events.Recorder{}, nil, testConfig(10), Options{
		Workers:    2,
		Seed:       7,
		StaggerMin: 200 * time.Millisecond,
		StaggerMax: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	started := make(chan error, 1)
	go func() { started <- e.Start(context.Background()) }()

	require.Eventually(t, e.IsRunning, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return e.ActiveCount() >= 1 }, time.Second, 5*time.Millisecond)
	status := e.Status()
	assert.True(t, status.Running)

	begin := time.Now()
	e.Stop()
	assert.Less(t, time.Since(begin), time.Second)
	require.NoError(t, <-started)

	assert.False(t, e.IsRunning())
	assert.Less(t, e.ActiveCount(), 10)
	assert.Equal(t, e.ActiveCount(), agentsOnCall(t, st))
}

func agentsOnCall(t *testing.T, st store.Store) int {
	t.Helper()
	agents, err := st.ListAgents(context.Background())
	require.NoError(t, err)
	n := 0
	for _, a := range agents {
		if a.Status == models.AgentOnCall {
			n++
		}
	}
	return n
}

func TestUpdateConfigRejectsInvalidValues(t *testing.T) {
	f := newFixture(t, testConfig(2), nil, nil)
	ctx := context.Background()
	before := f.engine.Config()

	cases := []ConfigUpdate{
		{NumCalls: intPtr(AgentCatalogSize() + 1)},
		{NumCalls: intPtr(-1)},
		{IssueFrequency: floatPtr(1.5)},
		{SentimentDistribution: strPtr("gloomy")},
		{MessageInterval: floatPtr(0.5)},
		{MessageInterval: floatPtr(1e300)},
	}
	for i, u := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			_, err := f.engine.UpdateConfig(ctx, u)
			require.Error(t, err)
			assert.True(t, errors.IsErrorType(err, errors.ErrInvalidInput))
			assert.Equal(t, before, f.engine.Config())
		})
	}

	cfg, err := f.engine.UpdateConfig(ctx, ConfigUpdate{MessageInterval: floatPtr(2.5), SentimentDistribution: strPtr(DistributionNegative)})
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.MessageInterval)
	assert.Equal(t, DistributionNegative, cfg.SentimentDistribution)
	assert.Equal(t, 2, cfg.NumCalls)
	assert.Equal(t, 0, f.engine.ActiveCount(), "a stopped engine does not reconcile")
}

type flakyStore struct {
	store.Store
	mu      sync.Mutex
	failFor string
}

func (s *flakyStore) UpdateCall(ctx context.Context, callID string, u store.CallUpdate) (*models.Call, error) {
	s.mu.Lock()
	fail := callID == s.failFor
	s.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("store unavailable")
	}
	return s.Store.UpdateCall(ctx, callID, u)
}

type panickyPublisher struct {
	events.Recorder
	panicFor string
}

func (p *panickyPublisher) Publish(e events.Event) {
	if d, ok := e.Data.(events.CallUpdateData); ok && d.CallID == p.panicFor {
		panic("observer exploded")
	}
	p.Recorder.Publish(e)
}

func TestCycleIsolatesFaults(t *testing.T) {
	st := &flakyStore{Store: store.NewMemoryStore()}
	pub := &panickyPublisher{}
	clock := &tickingClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
	e, err := NewEngine(quietLogger(), st, pub, nil, testConfig(0), Options{Workers: 2, Seed: 7, Now: clock.Now})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.seedAgents(ctx))

	broken, err := e.TriggerEvent(ctx, TriggerAngryCustomer)
	require.NoError(t, err)
	panicky, err := e.TriggerEvent(ctx, TriggerEscalationRequest)
	require.NoError(t, err)
	healthy, err := e.TriggerEvent(ctx, TriggerComplianceIssue)
	require.NoError(t, err)

	st.mu.Lock()
	st.failFor = broken
	st.mu.Unlock()
	pub.panicFor = panicky

	for i := 0; i < 3; i++ {
		e.runCycle(ctx)
	}

	call, err := st.GetCall(ctx, healthy)
	require.NoError(t, err)
	assert.Len(t, call.Transcript, 3)

	call, err = st.GetCall(ctx, broken)
	require.NoError(t, err)
	assert.Empty(t, call.Transcript)
	assert.Equal(t, models.CallActive, call.Status)

	assert.Equal(t, 3, e.ActiveCount())
	assert.Len(t, pub.OfType(events.MetricsUpdate), 3)
}

type stubSummarizer struct {
	issue string
}

func (s stubSummarizer) Summarize(context.Context, []models.Utterance) (models.Summary, string) {
	sum := summary.Empty()
	sum.PrimaryIssue = s.issue
	return sum, summary.SourcePrimary
}

func TestFinalSummaryUsesPrimaryTier(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, stubSummarizer{issue: "Duplicate billing"})
	f.seed(t)
	ctx := context.Background()

	script, _ := TriggerScript(TriggerEscalationRequest)
	callID, err := f.engine.TriggerEvent(ctx, TriggerEscalationRequest)
	require.NoError(t, err)
	for i := 0; i <= len(script.Messages); i++ {
		f.engine.runCycle(ctx)
	}

	call, err := f.store.GetCall(ctx, callID)
	require.NoError(t, err)
	assert.Equal(t, models.CallEnded, call.Status)
	assert.Equal(t, "Duplicate billing", call.AISummary.PrimaryIssue)
}

func TestFallbackSummaryKeepsScriptTitle(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)
	f.seed(t)
	ctx := context.Background()

	script, _ := TriggerScript(TriggerEscalationRequest)
	callID, err := f.engine.TriggerEvent(ctx, TriggerEscalationRequest)
	require.NoError(t, err)
	for i := 0; i <= len(script.Messages); i++ {
		f.engine.runCycle(ctx)
	}

	call, err := f.store.GetCall(ctx, callID)
	require.NoError(t, err)
	assert.Equal(t, models.CallEnded, call.Status)
	assert.Equal(t, "Escalation Request", call.AISummary.PrimaryIssue)
	assert.Equal(t, call.AISummary.OverallSentiment, summary.Summarize(call.Transcript).OverallSentiment)
}

func TestTopUpReplacesEndedCalls(t *testing.T) {
	f := newFixture(t, testConfig(3), nil, nil)
	f.seed(t)
	ctx := context.Background()

	f.engine.topUp(ctx)
	assert.Equal(t, 3, f.engine.ActiveCount())

	// run long enough for every catalog script to finish at least once
	for i := 0; i < 20; i++ {
		f.engine.runCycle(ctx)
		assert.Equal(t, 3, f.engine.ActiveCount())
	}
	assert.NotEmpty(t, f.events.OfType(events.CallEnded))

	metricsEvents := f.events.OfType(events.MetricsUpdate)
	require.Len(t, metricsEvents, 20)
	last := metricsEvents[len(metricsEvents)-1].Data.(events.MetricsData)
	assert.Equal(t, 3, last.ActiveCalls)
	assert.GreaterOrEqual(t, last.AvgSentiment, -1.0)
	assert.LessOrEqual(t, last.AvgSentiment, 1.0)
}

func TestPopulationIsCappedByAgents(t *testing.T) {
	f := newFixture(t, testConfig(AgentCatalogSize()), nil, nil)
	f.seed(t)
	ctx := context.Background()

	f.engine.topUp(ctx)
	assert.Equal(t, AgentCatalogSize(), f.engine.ActiveCount())

	_, err := f.engine.TriggerEvent(ctx, TriggerAngryCustomer)
	assert.True(t, errors.IsErrorType(err, errors.ErrNoAgentAvailable))
	assert.Equal(t, AgentCatalogSize(), f.engine.ActiveCount())
}

func TestPickScript(t *testing.T) {
	f := newFixture(t, testConfig(0), nil, nil)

	cfg := testConfig(0)
	cfg.IssueFrequency = 1
	for i := 0; i < 50; i++ {
		_, isTrigger := TriggerScript(f.engine.pickScript(cfg).Type)
		assert.True(t, isTrigger)
	}

	cfg.IssueFrequency = 0
	for i := 0; i < 50; i++ {
		_, isTrigger := TriggerScript(f.engine.pickScript(cfg).Type)
		assert.False(t, isTrigger)
	}

	cfg.SentimentDistribution = DistributionNegative
	negative, positive := 0, 0
	for i := 0; i < 2000; i++ {
		mood := f.engine.pickScript(cfg).CustomerMood
		switch {
		case negativeMoods[mood]:
			negative++
		case positiveMoods[mood]:
			positive++
		}
	}
	assert.Greater(t, negative, positive)
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 50, healthScore(0))
	assert.Equal(t, 100, healthScore(1))
	assert.Equal(t, 0, healthScore(-1))
	assert.Equal(t, 100, healthScore(1.5))
	assert.Equal(t, 0, healthScore(-3))
	assert.Equal(t, 53, healthScore(0.05))

	for m := -1.0; m <= 1.0; m += 0.01 {
		for _, d := range []float64{0, 0.01, 0.1, 0.5} {
			assert.GreaterOrEqual(t, healthScore(m+d), healthScore(m))
		}
	}
}

func TestIssueTitle(t *testing.T) {
	assert.Equal(t, "Billing Dispute", issueTitle("billing_dispute"))
	assert.Equal(t, "Angry Customer", issueTitle("angry_customer"))
	assert.Equal(t, "Refund", issueTitle("refund"))
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
