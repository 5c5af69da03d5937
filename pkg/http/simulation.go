package http

import (
	"context"
	"net/http"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/simulation"
)

func (a *API) startSimulation(w http.ResponseWriter, r *http.Request) {
	if a.sim.IsRunning() {
		writeMessage(w, "Simulation already running")
		return
	}
	// the engine outlives the request
	if err := a.sim.Start(context.WithoutCancel(r.Context())); err != nil {
		a.fail(w, r, err)
		return
	}
	writeMessage(w, "Simulation started")
}

func (a *API) stopSimulation(w http.ResponseWriter, r *http.Request) {
	a.sim.Stop()
	writeMessage(w, "Simulation stopped")
}

func (a *API) updateSimulationConfig(w http.ResponseWriter, r *http.Request) {
	var update simulation.ConfigUpdate
	if err := decodeBody(r, &update); err != nil {
		a.fail(w, r, err)
		return
	}

	cfg, err := a.sim.UpdateConfig(context.WithoutCancel(r.Context()), update)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Config updated",
		"config":  cfg,
	})
}

type triggerRequest struct {
	EventType string `json:"event_type"`
}

// triggerEvent starts a scripted call; on a stopped engine it waits for the
// next start
func (a *API) triggerEvent(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if _, ok := simulation.TriggerScript(req.EventType); !ok {
		a.fail(w, r, errors.NewUnknownTrigger(req.EventType))
		return
	}
	callID, err := a.sim.TriggerEvent(context.WithoutCancel(r.Context()), req.EventType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Event '" + req.EventType + "' triggered",
		"call_id": callID,
	})
}

func (a *API) simulationStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sim.Status())
}
