// Package store persists calls, agents and alerts. Two backends are provided:
// an in-process map store and a SQLite document store.
package store

import (
	"context"
	"slices"
	"sort"
	"time"

	"callmonitor/pkg/models"
)

// SortOrder orders list results by creation time
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// ListOptions controls paging and projection of list results
type ListOptions struct {
	Skip  int
	Limit int // zero means no limit
	Sort  SortOrder

	// OmitTranscript drops the transcript from returned calls
	OmitTranscript bool
	// TranscriptTail keeps only the last N transcript lines when positive
	TranscriptTail int
}

// CallFilter selects calls; zero fields match everything
type CallFilter struct {
	Status        models.CallStatus
	AgentID       string
	StartedAfter  time.Time
	StartedBefore time.Time
}

// CallUpdate is a partial update of one call. Nil fields are left alone.
type CallUpdate struct {
	AppendUtterance *models.Utterance
	AppendAlert     *models.AlertTrigger
	AppendAction    *models.SupervisorAction

	Status          *models.CallStatus
	EndedAt         *time.Time
	DurationSeconds *int
	HealthScore     *int
	Summary         *models.Summary
	Resolution      *models.Resolution

	// RequireStatus rejects the update unless the call is in this status
	RequireStatus models.CallStatus
}

// AgentUpdate changes the availability of an agent
type AgentUpdate struct {
	Status        models.AgentStatus
	CurrentCallID string
}

// AlertFilter selects alerts; zero fields match everything
type AlertFilter struct {
	Status       models.AlertStatus
	CallID       string
	CreatedAfter time.Time
}

// AlertUpdate is a partial update of one alert
type AlertUpdate struct {
	Status          *models.AlertStatus
	AcknowledgedBy  *string
	AcknowledgedAt  *time.Time
	ResolutionNotes *string

	// RequireStatus rejects the update unless the alert is in this status
	RequireStatus models.AlertStatus
}

// Store is the persistence contract used by the engine and the API
type Store interface {
	InsertCall(ctx context.Context, call *models.Call) error
	GetCall(ctx context.Context, callID string) (*models.Call, error)
	ListCalls(ctx context.Context, filter CallFilter, opts ListOptions) ([]*models.Call, error)
	CountCalls(ctx context.Context, filter CallFilter) (int, error)
	UpdateCall(ctx context.Context, callID string, update CallUpdate) (*models.Call, error)
	DeleteCalls(ctx context.Context, filter CallFilter) (int, error)

	InsertAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, agentID string) (*models.Agent, error)
	ListAgents(ctx context.Context) ([]*models.Agent, error)
	UpdateAgent(ctx context.Context, agentID string, update AgentUpdate) error

	InsertAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, alertID string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter, opts ListOptions) ([]*models.Alert, error)
	CountAlerts(ctx context.Context, filter AlertFilter) (int, error)
	UpdateAlert(ctx context.Context, alertID string, update AlertUpdate) (*models.Alert, error)
	DeleteAlerts(ctx context.Context, filter AlertFilter) (int, error)

	Close() error
}

// CallStats aggregates the active call population
type CallStats struct {
	ActiveCalls     int
	AvgSentiment    float64
	AvgHealthScore  float64
	LongestDuration int
}

// ActiveCallStats aggregates the calls currently marked active
func ActiveCallStats(ctx context.Context, s Store) (CallStats, error) {
	calls, err := s.ListCalls(ctx, CallFilter{Status: models.CallActive}, ListOptions{OmitTranscript: true})
	if err != nil {
		return CallStats{}, err
	}

	stats := CallStats{ActiveCalls: len(calls), AvgHealthScore: 50}
	if len(calls) == 0 {
		return stats, nil
	}

	var sentiment, health float64
	for _, c := range calls {
		sentiment += c.AISummary.OverallSentiment
		health += float64(c.HealthScore)
		if c.DurationSeconds > stats.LongestDuration {
			stats.LongestDuration = c.DurationSeconds
		}
	}
	stats.AvgSentiment = sentiment / float64(len(calls))
	stats.AvgHealthScore = health / float64(len(calls))
	return stats, nil
}

func (f CallFilter) matches(c *models.Call) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.AgentID != "" && c.Agent.ID != f.AgentID {
		return false
	}
	if !f.StartedAfter.IsZero() && c.StartedAt.Before(f.StartedAfter) {
		return false
	}
	if !f.StartedBefore.IsZero() && !c.StartedAt.Before(f.StartedBefore) {
		return false
	}
	return true
}

func (f AlertFilter) matches(a *models.Alert) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CallID != "" && a.CallID != f.CallID {
		return false
	}
	if !f.CreatedAfter.IsZero() && a.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	return true
}

// apply mutates c in place; the status guard is checked by the caller
func (u CallUpdate) apply(c *models.Call) {
	if u.AppendUtterance != nil {
		c.Transcript = append(c.Transcript, *u.AppendUtterance)
	}
	if u.AppendAlert != nil {
		c.AlertsTriggered = append(c.AlertsTriggered, *u.AppendAlert)
	}
	if u.AppendAction != nil {
		c.SupervisorActions = append(c.SupervisorActions, *u.AppendAction)
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.EndedAt != nil {
		t := *u.EndedAt
		c.EndedAt = &t
	}
	if u.DurationSeconds != nil {
		c.DurationSeconds = *u.DurationSeconds
	}
	if u.HealthScore != nil {
		c.HealthScore = *u.HealthScore
	}
	if u.Summary != nil {
		c.AISummary = *u.Summary
	}
	if u.Resolution != nil {
		r := *u.Resolution
		c.Resolution = &r
	}
}

func (u AlertUpdate) apply(a *models.Alert) {
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.AcknowledgedBy != nil {
		a.AcknowledgedBy = *u.AcknowledgedBy
	}
	if u.AcknowledgedAt != nil {
		t := *u.AcknowledgedAt
		a.AcknowledgedAt = &t
	}
	if u.ResolutionNotes != nil {
		a.ResolutionNotes = *u.ResolutionNotes
	}
}

func project(c *models.Call, opts ListOptions) *models.Call {
	out := c.Clone()
	switch {
	case opts.OmitTranscript:
		out.Transcript = []models.Utterance{}
	case opts.TranscriptTail > 0 && len(out.Transcript) > opts.TranscriptTail:
		out.Transcript = out.Transcript[len(out.Transcript)-opts.TranscriptTail:]
	}
	return out
}

func sortCalls(calls []*models.Call, order SortOrder) {
	sort.SliceStable(calls, func(i, j int) bool {
		if order == OldestFirst {
			return calls[i].StartedAt.Before(calls[j].StartedAt)
		}
		return calls[i].StartedAt.After(calls[j].StartedAt)
	})
}

func sortAlerts(alerts []*models.Alert, order SortOrder) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if order == OldestFirst {
			return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}

// page returns the [skip, skip+limit) window bounds for n items
func page(n int, opts ListOptions) (int, int) {
	start := opts.Skip
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return start, end
}

func cloneAlert(a *models.Alert) *models.Alert {
	out := *a
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		out.AcknowledgedAt = &t
	}
	return &out
}

func cloneAgent(a *models.Agent) *models.Agent {
	out := *a
	out.Skills = slices.Clone(a.Skills)
	return &out
}

func sortAgents(agents []*models.Agent) {
	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentID < agents[j].AgentID })
}
