package store

import (
	"context"
	"fmt"
	"sync"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/models"
)

// MemoryStore keeps all documents in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	calls  map[string]*models.Call
	agents map[string]*models.Agent
	alerts map[string]*models.Alert
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls:  make(map[string]*models.Call),
		agents: make(map[string]*models.Agent),
		alerts: make(map[string]*models.Alert),
	}
}

func (m *MemoryStore) InsertCall(_ context.Context, call *models.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calls[call.CallID]; ok {
		return errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("call %s already exists", call.CallID))
	}
	m.calls[call.CallID] = call.Clone()
	return nil
}

func (m *MemoryStore) GetCall(_ context.Context, callID string) (*models.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.calls[callID]
	if !ok {
		return nil, errors.NewCallNotFound(callID)
	}
	return c.Clone(), nil
}

func (m *MemoryStore) ListCalls(_ context.Context, filter CallFilter, opts ListOptions) ([]*models.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]*models.Call, 0, len(m.calls))
	for _, c := range m.calls {
		if filter.matches(c) {
			matched = append(matched, c)
		}
	}
	sortCalls(matched, opts.Sort)
	start, end := page(len(matched), opts)
	out := make([]*models.Call, 0, end-start)
	for _, c := range matched[start:end] {
		out = append(out, project(c, opts))
	}
	return out, nil
}

func (m *MemoryStore) CountCalls(_ context.Context, filter CallFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if filter.matches(c) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) UpdateCall(_ context.Context, callID string, update CallUpdate) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	if !ok {
		return nil, errors.NewCallNotFound(callID)
	}
	if update.RequireStatus != "" && c.Status != update.RequireStatus {
		return nil, errors.Wrap(errors.ErrCallNotActive, fmt.Sprintf("call %s is %s", callID, c.Status))
	}
	update.apply(c)
	return c.Clone(), nil
}

func (m *MemoryStore) DeleteCalls(_ context.Context, filter CallFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.calls {
		if filter.matches(c) {
			delete(m.calls, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) InsertAgent(_ context.Context, agent *models.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[agent.AgentID]; ok {
		return errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("agent %s already exists", agent.AgentID))
	}
	m.agents[agent.AgentID] = cloneAgent(agent)
	return nil
}

func (m *MemoryStore) GetAgent(_ context.Context, agentID string) (*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[agentID]
	if !ok {
		return nil, errors.NewAgentNotFound(agentID)
	}
	return cloneAgent(a), nil
}

func (m *MemoryStore) ListAgents(_ context.Context) ([]*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, cloneAgent(a))
	}
	sortAgents(out)
	return out, nil
}

func (m *MemoryStore) UpdateAgent(_ context.Context, agentID string, update AgentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok {
		return errors.NewAgentNotFound(agentID)
	}
	a.Status = update.Status
	a.CurrentCallID = update.CurrentCallID
	return nil
}

func (m *MemoryStore) InsertAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[alert.AlertID]; ok {
		return errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("alert %s already exists", alert.AlertID))
	}
	m.alerts[alert.AlertID] = cloneAlert(alert)
	return nil
}

func (m *MemoryStore) GetAlert(_ context.Context, alertID string) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return nil, errors.NewAlertNotFound(alertID, "Alert not found")
	}
	return cloneAlert(a), nil
}

func (m *MemoryStore) ListAlerts(_ context.Context, filter AlertFilter, opts ListOptions) ([]*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]*models.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if filter.matches(a) {
			matched = append(matched, a)
		}
	}
	sortAlerts(matched, opts.Sort)
	start, end := page(len(matched), opts)
	out := make([]*models.Alert, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, cloneAlert(a))
	}
	return out, nil
}

func (m *MemoryStore) CountAlerts(_ context.Context, filter AlertFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.alerts {
		if filter.matches(a) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) UpdateAlert(_ context.Context, alertID string, update AlertUpdate) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return nil, errors.NewAlertNotFound(alertID, "Alert not found")
	}
	if update.RequireStatus != "" && a.Status != update.RequireStatus {
		return nil, errors.Wrap(errors.ErrFailedPrecondition, fmt.Sprintf("alert %s is %s", alertID, a.Status))
	}
	update.apply(a)
	return cloneAlert(a), nil
}

func (m *MemoryStore) DeleteAlerts(_ context.Context, filter AlertFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, a := range m.alerts {
		if filter.matches(a) {
			delete(m.alerts, id)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory store
func (m *MemoryStore) Close() error {
	return nil
}
