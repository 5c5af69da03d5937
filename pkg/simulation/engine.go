// Package simulation runs the population of simulated calls. The Engine
// creates calls, advances each one line per cycle through its script, scores
// the lines, raises alerts and replaces finished calls.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"callmonitor/pkg/analyzer"
	"callmonitor/pkg/errors"
	"callmonitor/pkg/events"
	"callmonitor/pkg/metrics"
	"callmonitor/pkg/models"
	"callmonitor/pkg/store"
	"callmonitor/pkg/summary"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FinalSummarizer produces the summary stored when a call ends. It must not
// fail; the second result names the tier that answered.
type FinalSummarizer interface {
	Summarize(ctx context.Context, transcript []models.Utterance) (models.Summary, string)
}

// Options tunes the engine. The zero value is valid: no start-up stagger,
// four workers and a time-based seed.
type Options struct {
	Workers    int
	Seed       int64
	StaggerMin time.Duration
	StaggerMax time.Duration
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// DefaultOptions staggers start-up creation by 200-500ms per call
func DefaultOptions() Options {
	return Options{
		Workers:    4,
		StaggerMin: 200 * time.Millisecond,
		StaggerMax: 500 * time.Millisecond,
	}
}

// Status describes the engine for API clients
type Status struct {
	Running     bool   `json:"running"`
	ActiveCalls int    `json:"active_calls"`
	Config      Config `json:"config"`
}

// Engine owns the set of active calls
type Engine struct {
	logger     *logrus.Logger
	store      store.Store
	publisher  events.Publisher
	summarizer FinalSummarizer
	opts       Options

	cfgMu sync.RWMutex
	cfg   Config

	// mu guards active and busy; agent records are only written under it
	mu     sync.Mutex
	active map[string]*callState
	busy   map[string]string // agent id -> call id

	// popMu serializes population changes so top-up and reconcile cannot overshoot
	popMu sync.Mutex
	// trimPending is set when num_calls changes while stopped; the next cycle
	// then ends any excess instead of only topping up
	trimPending atomic.Bool

	rngMu sync.Mutex
	rng   *rand.Rand

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEngine wires an engine; nothing runs until Start
func NewEngine(logger *logrus.Logger, st store.Store, publisher events.Publisher, summarizer FinalSummarizer, cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if summarizer == nil {
		summarizer = summary.NewTwoTier(nil, 0, logger)
	}

	return &Engine{
		logger:     logger,
		store:      st,
		publisher:  publisher,
		summarizer: summarizer,
		opts:       opts,
		cfg:        cfg,
		active:     make(map[string]*callState),
		busy:       make(map[string]string),
		rng:        rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// Config returns the current configuration snapshot
func (e *Engine) Config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// IsRunning reports whether the cycle loop is running
func (e *Engine) IsRunning() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.running
}

// ActiveCount returns the size of the active set
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Status returns a snapshot of the engine state
func (e *Engine) Status() Status {
	return Status{
		Running:     e.IsRunning(),
		ActiveCalls: e.ActiveCount(),
		Config:      e.Config(),
	}
}

// Start seeds agents, fills the population and launches the cycle loop.
// Calling Start on a running engine does nothing. Stop may interrupt the
// staggered fill.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.running {
		e.lifeMu.Unlock()
		return nil
	}
	if err := e.seedAgents(ctx); err != nil {
		e.lifeMu.Unlock()
		return errors.Wrap(err, "failed to seed agents")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.running = true
	e.lifeMu.Unlock()

	cfg := e.Config()
	fillCtx, stopFill := context.WithCancel(ctx)
	unwatch := context.AfterFunc(loopCtx, stopFill)
	e.fill(fillCtx)
	unwatch()
	stopFill()

	go e.loop(loopCtx, done)

	e.logger.WithFields(logrus.Fields{
		"num_calls": cfg.NumCalls,
		"interval":  cfg.MessageInterval,
		"workers":   e.opts.Workers,
	}).Info("Simulation started")
	return nil
}

// Stop cancels the loop and waits for the cycle in flight to reach a safe
// point. Active calls stay active and resume on the next Start.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if !e.running {
		return
	}
	e.cancel()
	<-e.done
	e.running = false
	e.cancel = nil
	e.done = nil
	e.logger.Info("Simulation stopped")
}

// UpdateConfig merges a partial change. A running engine immediately creates
// missing calls or ends the oldest excess ones; a stopped one does so on the
// first cycle after Start.
func (e *Engine) UpdateConfig(ctx context.Context, update ConfigUpdate) (Config, error) {
	e.cfgMu.Lock()
	next, err := e.cfg.Merge(update)
	if err != nil {
		e.cfgMu.Unlock()
		return e.Config(), err
	}
	e.cfg = next
	e.cfgMu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"num_calls":              next.NumCalls,
		"issue_frequency":        next.IssueFrequency,
		"sentiment_distribution": next.SentimentDistribution,
		"message_interval":       next.MessageInterval,
	}).Info("Simulation config updated")

	if e.IsRunning() {
		e.reconcile(ctx, next.NumCalls)
	} else if update.NumCalls != nil {
		e.trimPending.Store(true)
	}
	return next, nil
}

// TriggerEvent starts one call playing the named trigger script. On a
// stopped engine the call waits for the next Start like any other.
func (e *Engine) TriggerEvent(ctx context.Context, kind string) (string, error) {
	script, ok := TriggerScript(kind)
	if !ok {
		return "", errors.NewUnknownTrigger(kind)
	}
	if !e.IsRunning() {
		if err := e.seedAgents(ctx); err != nil {
			return "", errors.Wrap(err, "failed to seed agents")
		}
	}
	return e.createCall(ctx, &script)
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	e.logger.Debug("Simulation loop starting")

	for {
		e.runCycle(ctx)

		select {
		case <-ctx.Done():
			e.logger.Debug("Simulation loop cancelled")
			return
		case <-time.After(e.Config().MessageInterval):
		}
	}
}

// runCycle advances every active call once, tops up the population and
// publishes a metrics snapshot
func (e *Engine) runCycle(ctx context.Context) {
	observe := metrics.ObserveCycle()
	defer observe()

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for _, cs := range e.activeCalls() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			e.safeAdvance(ctx, cs)
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return
	}
	if e.trimPending.Swap(false) {
		e.reconcile(ctx, e.Config().NumCalls)
	} else {
		e.topUp(ctx)
	}
	e.publishMetrics(ctx)
}

// safeAdvance contains any fault to the one call
func (e *Engine) safeAdvance(ctx context.Context, cs *callState) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordFault("panic")
			e.logger.WithFields(logrus.Fields{
				"call_id": cs.id,
				"panic":   r,
			}).Error("Recovered from panic while advancing call")
		}
	}()

	if err := e.advance(ctx, cs); err != nil {
		metrics.RecordFault("advance")
		e.logger.WithError(err).WithField("call_id", cs.id).Error("Error advancing call")
	}
}

// advance appends the next line of the script, or ends an exhausted call
func (e *Engine) advance(ctx context.Context, cs *callState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ended {
		return nil
	}
	if cs.exhausted() {
		return e.endLocked(ctx, cs)
	}

	wctx := context.WithoutCancel(ctx)
	line := cs.render()
	now := e.opts.Now()
	utterance := models.Utterance{
		Speaker:   line.Speaker,
		Text:      line.Text,
		Timestamp: now,
		Analysis:  analyzer.Analyze(line.Text, line.Speaker),
	}

	transcript := append(cs.transcript[:len(cs.transcript):len(cs.transcript)], utterance)
	mean := meanSentiment(transcript)
	health := healthScore(mean)
	rolling := summary.Summarize(transcript)
	rolling.PrimaryIssue = cs.issueTitle
	duration := int(now.Sub(cs.startedAt).Seconds())

	_, err := e.store.UpdateCall(wctx, cs.id, store.CallUpdate{
		AppendUtterance: &utterance,
		HealthScore:     &health,
		Summary:         &rolling,
		DurationSeconds: &duration,
		RequireStatus:   models.CallActive,
	})
	if err != nil {
		if errors.IsErrorType(err, errors.ErrCallNotActive) || errors.IsErrorType(err, errors.ErrCallNotFound) {
			e.logger.WithError(err).WithField("call_id", cs.id).Warn("Dropping call that is no longer active in the store")
			e.dropLocked(wctx, cs)
			return nil
		}
		return err
	}

	cs.transcript = transcript
	cs.cursor++
	cs.duration = duration
	metrics.RecordUtterance(string(utterance.Speaker), string(utterance.Analysis.Intent))

	for _, flag := range utterance.Analysis.Flags {
		if err := e.raiseAlert(wctx, cs, flag, utterance.Text, utterance.Analysis.Sentiment); err != nil {
			metrics.RecordFault("alert")
			e.logger.WithError(err).WithFields(logrus.Fields{
				"call_id": cs.id,
				"flag":    flag,
			}).Error("Failed to raise alert")
		}
	}

	e.publisher.Publish(events.Event{Type: events.CallUpdate, Data: events.CallUpdateData{
		CallID:          cs.id,
		TranscriptEntry: utterance,
		HealthScore:     health,
		AvgSentiment:    analyzer.Round2(mean),
		DurationSeconds: duration,
	}})
	return nil
}

// endCall tears down one call on behalf of reconcile
func (e *Engine) endCall(ctx context.Context, cs *callState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.ended {
		return nil
	}
	return e.endLocked(ctx, cs)
}

// endLocked finalizes the call. cs.mu must be held.
func (e *Engine) endLocked(ctx context.Context, cs *callState) error {
	wctx := context.WithoutCancel(ctx)
	now := e.opts.Now()
	duration := int(now.Sub(cs.startedAt).Seconds())

	final, source := e.summarizer.Summarize(wctx, cs.transcript)
	if source != summary.SourcePrimary {
		final.PrimaryIssue = cs.issueTitle
	}

	resolutionType := resolutions[e.intn(len(resolutions))]
	satisfaction := 1 + e.intn(3)
	if resolutionType == models.ResolutionSolved {
		satisfaction = 1 + e.intn(5)
	}
	resolution := models.Resolution{
		Resolved:             resolutionType == models.ResolutionSolved,
		ResolutionType:       resolutionType,
		CustomerSatisfaction: satisfaction,
	}

	ended := models.CallEnded
	_, err := e.store.UpdateCall(wctx, cs.id, store.CallUpdate{
		Status:          &ended,
		EndedAt:         &now,
		DurationSeconds: &duration,
		Summary:         &final,
		Resolution:      &resolution,
		RequireStatus:   models.CallActive,
	})
	if err != nil && !errors.IsErrorType(err, errors.ErrCallNotActive) && !errors.IsErrorType(err, errors.ErrCallNotFound) {
		// the call stays active and is retried on the next cycle
		return errors.Wrap(err, "failed to end call", map[string]interface{}{"call_id": cs.id})
	}

	cs.duration = duration
	e.dropLocked(wctx, cs)
	metrics.RecordCallEnded(resolutionType)

	e.logger.WithFields(logrus.Fields{
		"call_id":    cs.id,
		"agent_id":   cs.agentID,
		"duration":   duration,
		"resolution": resolutionType,
		"summary":    source,
	}).Info("Call ended")

	e.publisher.Publish(events.Event{Type: events.CallEnded, Data: events.CallEndedData{
		CallID:   cs.id,
		Duration: duration,
	}})
	return nil
}

// dropLocked removes the call from the active set and frees its agent.
// cs.mu must be held.
func (e *Engine) dropLocked(ctx context.Context, cs *callState) {
	cs.ended = true

	e.mu.Lock()
	delete(e.active, cs.id)
	if e.busy[cs.agentID] == cs.id {
		delete(e.busy, cs.agentID)
		e.setAgentLocked(ctx, cs.agentID, store.AgentUpdate{Status: models.AgentAvailable})
	}
	n := len(e.active)
	e.mu.Unlock()

	metrics.SetActiveCalls(n)
}

// setAgentLocked writes an agent's availability. e.mu must be held.
func (e *Engine) setAgentLocked(ctx context.Context, agentID string, update store.AgentUpdate) {
	if err := e.store.UpdateAgent(ctx, agentID, update); err != nil {
		metrics.RecordFault("agent")
		e.logger.WithError(err).WithField("agent_id", agentID).Warn("Failed to update agent status")
	}
}

// createCall starts one call with the given script, or a randomly chosen one
func (e *Engine) createCall(ctx context.Context, script *Script) (string, error) {
	wctx := context.WithoutCancel(ctx)
	cfg := e.Config()

	var chosen Script
	if script != nil {
		chosen = *script
	} else {
		chosen = e.pickScript(cfg)
	}

	now := e.opts.Now()
	callID := newCallID(now)
	customerName := customerNames[e.intn(len(customerNames))]

	profile, err := e.reserveAgent(wctx, callID)
	if err != nil {
		return "", err
	}

	doc := &models.Call{
		CallID:            callID,
		Status:            models.CallActive,
		Channel:           "voice",
		StartedAt:         now,
		Customer:          e.newCustomer(customerName),
		Agent:             models.AgentRef{ID: profile.AgentID, Name: profile.Name, Skills: append([]string(nil), profile.Skills...)},
		Scenario:          chosen.Type,
		Transcript:        []models.Utterance{},
		AISummary:         initialSummary(chosen),
		HealthScore:       80,
		AlertsTriggered:   []models.AlertTrigger{},
		SupervisorActions: []models.SupervisorAction{},
	}

	if err := e.store.InsertCall(wctx, doc); err != nil {
		e.releaseAgent(wctx, profile.AgentID, callID)
		return "", errors.Wrap(err, "failed to insert call", map[string]interface{}{"call_id": callID})
	}

	cs := newCallState(callID, chosen, profile, customerName, now)
	e.mu.Lock()
	e.active[callID] = cs
	n := len(e.active)
	e.mu.Unlock()

	metrics.SetActiveCalls(n)
	metrics.RecordCallStarted(chosen.Type)
	e.logger.WithFields(logrus.Fields{
		"call_id":  callID,
		"agent_id": profile.AgentID,
		"scenario": chosen.Type,
	}).Info("Call started")

	e.publisher.Publish(events.Event{Type: events.CallStarted, Data: doc})
	return callID, nil
}

// reserveAgent marks a random free agent as on the call
func (e *Engine) reserveAgent(ctx context.Context, callID string) (AgentProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	free := make([]AgentProfile, 0, len(agentProfiles))
	for _, p := range agentProfiles {
		if _, taken := e.busy[p.AgentID]; !taken {
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		return AgentProfile{}, errors.Wrap(errors.ErrNoAgentAvailable, "every agent is on a call")
	}

	p := free[e.intn(len(free))]
	e.busy[p.AgentID] = callID
	e.setAgentLocked(ctx, p.AgentID, store.AgentUpdate{Status: models.AgentOnCall, CurrentCallID: callID})
	return p, nil
}

func (e *Engine) releaseAgent(ctx context.Context, agentID, callID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[agentID] == callID {
		delete(e.busy, agentID)
		e.setAgentLocked(ctx, agentID, store.AgentUpdate{Status: models.AgentAvailable})
	}
}

// topUp creates calls until the active set reaches the configured target
func (e *Engine) topUp(ctx context.Context) {
	e.popMu.Lock()
	defer e.popMu.Unlock()

	for shortfall := e.Config().NumCalls - e.ActiveCount(); shortfall > 0; shortfall-- {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.createCall(ctx, nil); err != nil {
			metrics.RecordFault("create")
			e.logger.WithError(err).Error("Error creating call")
			if errors.IsErrorType(err, errors.ErrNoAgentAvailable) {
				return
			}
		}
	}
}

// fill creates the start-up population, pausing between calls
func (e *Engine) fill(ctx context.Context) {
	e.popMu.Lock()
	defer e.popMu.Unlock()

	for shortfall := e.Config().NumCalls - e.ActiveCount(); shortfall > 0; shortfall-- {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.createCall(ctx, nil); err != nil {
			metrics.RecordFault("create")
			e.logger.WithError(err).Warn("Failed to create call during start")
			if errors.IsErrorType(err, errors.ErrNoAgentAvailable) {
				return
			}
		}
		if err := e.stagger(ctx); err != nil {
			return
		}
	}
}

// reconcile moves the active set to target immediately
func (e *Engine) reconcile(ctx context.Context, target int) {
	e.topUp(ctx)

	e.popMu.Lock()
	defer e.popMu.Unlock()

	calls := e.activeCalls()
	excess := len(calls) - target
	for i := 0; i < excess; i++ {
		if err := e.endCall(ctx, calls[i]); err != nil {
			metrics.RecordFault("end")
			e.logger.WithError(err).WithField("call_id", calls[i].id).Error("Error ending excess call")
		}
	}
}

// activeCalls returns the active set, oldest first
func (e *Engine) activeCalls() []*callState {
	e.mu.Lock()
	out := make([]*callState, 0, len(e.active))
	for _, cs := range e.active {
		out = append(out, cs)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].startedAt.Equal(out[j].startedAt) {
			return out[i].id < out[j].id
		}
		return out[i].startedAt.Before(out[j].startedAt)
	})
	return out
}

func (e *Engine) publishMetrics(ctx context.Context) {
	calls := e.activeCalls()

	data := events.MetricsData{ActiveCalls: len(calls)}
	if len(calls) > 0 {
		var sum float64
		for _, cs := range calls {
			mean, duration := cs.snapshot()
			sum += analyzer.Round2(mean)
			if duration > data.LongestCall {
				data.LongestCall = duration
			}
		}
		data.AvgSentiment = analyzer.Round2(sum / float64(len(calls)))
	}

	alerts, err := e.store.CountAlerts(context.WithoutCancel(ctx), store.AlertFilter{Status: models.AlertActive})
	if err != nil {
		metrics.RecordFault("metrics")
		e.logger.WithError(err).Error("Error counting active alerts")
	}
	data.AlertsCount = alerts

	e.publisher.Publish(events.Event{Type: events.MetricsUpdate, Data: data})
}

// seedAgents inserts missing agents and frees any left on a call by an
// earlier run
func (e *Engine) seedAgents(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range agentProfiles {
		existing, err := e.store.GetAgent(ctx, p.AgentID)
		switch {
		case err == nil:
			if existing.Status != models.AgentAvailable {
				if _, ours := e.busy[p.AgentID]; !ours {
					e.setAgentLocked(ctx, p.AgentID, store.AgentUpdate{Status: models.AgentAvailable})
				}
			}
			continue
		case !errors.IsErrorType(err, errors.ErrAgentNotFound):
			return err
		}

		if err := e.store.InsertAgent(ctx, e.newAgent(p)); err != nil && !errors.IsErrorType(err, errors.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

func (e *Engine) newAgent(p AgentProfile) *models.Agent {
	now := e.opts.Now()
	return &models.Agent{
		AgentID:   p.AgentID,
		Name:      p.Name,
		Skills:    append([]string(nil), p.Skills...),
		AvatarIdx: p.AvatarIdx,
		Status:    models.AgentAvailable,
		Shift:     models.Shift{Start: now, End: now},
		PerformanceToday: models.Performance{
			CallsHandled:   e.intRange(5, 20),
			AvgHandleTime:  round1(e.uniform(180, 420)),
			AvgSentiment:   analyzer.Round2(e.uniform(-0.1, 0.6)),
			EscalationRate: analyzer.Round2(e.uniform(0.02, 0.15)),
			ResolutionRate: analyzer.Round2(e.uniform(0.7, 0.95)),
		},
		PerformanceMonthly: models.Performance{
			CallsHandled:            e.intRange(200, 500),
			AvgHandleTime:           round1(e.uniform(200, 400)),
			CustomerSatisfactionAvg: round1(e.uniform(3.5, 4.8)),
			QualityScore:            round1(e.uniform(70, 98)),
		},
	}
}

func (e *Engine) newCustomer(name string) models.Customer {
	return models.Customer{
		ID:                 "CUST-" + shortHex(8),
		Name:               name,
		Phone:              fmt.Sprintf("+1-555-%d-%d", e.intRange(100, 999), e.intRange(1000, 9999)),
		AccountType:        accountTypes[e.intn(len(accountTypes))],
		LifetimeValue:      analyzer.Round2(e.uniform(500, 10000)),
		PreviousCallsCount: e.intRange(0, 15),
		LastIssue:          lastIssues[e.intn(len(lastIssues))],
	}
}

// pickScript injects a trigger script with probability issue_frequency,
// otherwise draws from the catalog weighted by the sentiment distribution
func (e *Engine) pickScript(cfg Config) Script {
	if cfg.IssueFrequency > 0 && e.float() < cfg.IssueFrequency {
		kinds := TriggerKinds()
		s, _ := TriggerScript(kinds[e.intn(len(kinds))])
		return s
	}

	total := 0
	for _, s := range scenarios {
		total += scenarioWeight(s, cfg.SentimentDistribution)
	}
	n := e.intn(total)
	for _, s := range scenarios {
		n -= scenarioWeight(s, cfg.SentimentDistribution)
		if n < 0 {
			return s
		}
	}
	return scenarios[len(scenarios)-1]
}

func (e *Engine) stagger(ctx context.Context) error {
	if e.opts.StaggerMax <= 0 {
		return ctx.Err()
	}
	d := e.opts.StaggerMin
	if span := e.opts.StaggerMax - e.opts.StaggerMin; span > 0 {
		d += time.Duration(e.int63n(int64(span)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) int63n(n int64) int64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Int63n(n)
}

func (e *Engine) float() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

// intRange draws from [lo, hi]
func (e *Engine) intRange(lo, hi int) int {
	return lo + e.intn(hi-lo+1)
}

func (e *Engine) uniform(lo, hi float64) float64 {
	return lo + e.float()*(hi-lo)
}

// newCallID formats CALL-YYYYMMDD-XXXXXX
func newCallID(now time.Time) string {
	return fmt.Sprintf("CALL-%s-%s", now.Format("20060102"), strings.ToUpper(shortHex(6)))
}

func shortHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
