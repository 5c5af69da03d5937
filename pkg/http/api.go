package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"callmonitor/pkg/correlation"
	"callmonitor/pkg/errors"
	"callmonitor/pkg/events"
	"callmonitor/pkg/simulation"
	"callmonitor/pkg/store"

	"github.com/sirupsen/logrus"
)

const maxPageSize = 500

var callsAll = store.CallFilter{}

// Simulation is the engine surface driven by the API
type Simulation interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
	Status() simulation.Status
	UpdateConfig(ctx context.Context, update simulation.ConfigUpdate) (simulation.Config, error)
	TriggerEvent(ctx context.Context, kind string) (string, error)
}

// API serves the /api routes
type API struct {
	logger    *logrus.Logger
	store     store.Store
	sim       Simulation
	publisher events.Publisher
	now       func() time.Time
}

// NewAPI creates the REST handlers
func NewAPI(logger *logrus.Logger, st store.Store, sim Simulation, publisher events.Publisher) *API {
	return &API{
		logger:    logger,
		store:     st,
		sim:       sim,
		publisher: publisher,
		now:       time.Now,
	}
}

// Register adds every /api route to mux
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/calls/active", a.activeCalls)
	mux.HandleFunc("GET /api/calls/history", a.callHistory)
	mux.HandleFunc("GET /api/calls/{id}", a.callDetail)
	mux.HandleFunc("GET /api/calls/{id}/transcript", a.callTranscript)
	mux.HandleFunc("POST /api/calls/{id}/action", a.callAction)

	mux.HandleFunc("GET /api/alerts", a.activeAlerts)
	mux.HandleFunc("GET /api/alerts/history", a.alertHistory)
	mux.HandleFunc("POST /api/alerts/{id}/acknowledge", a.acknowledgeAlert)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", a.resolveAlert)

	mux.HandleFunc("GET /api/agents", a.listAgents)
	mux.HandleFunc("GET /api/agents/{id}", a.agentDetail)
	mux.HandleFunc("GET /api/agents/{id}/calls", a.agentCalls)

	mux.HandleFunc("GET /api/analytics/realtime", a.realtimeAnalytics)
	mux.HandleFunc("GET /api/analytics/hourly", a.hourlyAnalytics)
	mux.HandleFunc("GET /api/analytics/agents", a.listAgents)
	mux.HandleFunc("GET /api/analytics/issues", a.issueAnalytics)
	mux.HandleFunc("POST /api/analytics/export", a.exportAnalytics)

	mux.HandleFunc("POST /api/simulation/start", a.startSimulation)
	mux.HandleFunc("POST /api/simulation/stop", a.stopSimulation)
	mux.HandleFunc("POST /api/simulation/config", a.updateSimulationConfig)
	mux.HandleFunc("POST /api/simulation/trigger-event", a.triggerEvent)
	mux.HandleFunc("GET /api/simulation/status", a.simulationStatus)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, err)
	if errors.HTTPStatusFromError(err) >= http.StatusInternalServerError {
		correlation.Logger(r.Context(), a.logger).WithError(err).WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}).Error("Request failed")
	}
}

// queryInt reads a non-negative integer parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.NewInvalidInput(fmt.Sprintf("%s must be a non-negative integer", name),
			map[string]interface{}{"field": name, "value": raw})
	}
	return v, nil
}

// pageParams reads skip and limit, capping limit at maxPageSize
func pageParams(r *http.Request, defLimit int) (skip, limit int, err error) {
	if skip, err = queryInt(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", defLimit); err != nil {
		return 0, 0, err
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidInput(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func (a *API) startOfDay() time.Time {
	now := a.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
