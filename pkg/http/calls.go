package http

import (
	"net/http"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/events"
	"callmonitor/pkg/models"
	"callmonitor/pkg/store"

	"github.com/sirupsen/logrus"
)

func (a *API) activeCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := a.store.ListCalls(r.Context(),
		store.CallFilter{Status: models.CallActive},
		store.ListOptions{Limit: 50, Sort: store.NewestFirst, TranscriptTail: 1})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (a *API) callHistory(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r, 50)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	calls, err := a.store.ListCalls(r.Context(),
		store.CallFilter{Status: models.CallEnded},
		store.ListOptions{Skip: skip, Limit: limit, Sort: store.NewestFirst, OmitTranscript: true})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (a *API) callDetail(w http.ResponseWriter, r *http.Request) {
	call, err := a.store.GetCall(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (a *API) callTranscript(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	call, err := a.store.GetCall(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	lines := call.Transcript
	if skip > len(lines) {
		skip = len(lines)
	}
	lines = lines[skip:]
	if limit < len(lines) {
		lines = lines[:limit]
	}
	if lines == nil {
		lines = []models.Utterance{}
	}
	writeJSON(w, http.StatusOK, lines)
}

type actionRequest struct {
	Action  string                 `json:"action"`
	Details map[string]interface{} `json:"details"`
}

func (a *API) callAction(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")

	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Action == "" {
		a.fail(w, r, errors.NewInvalidInput("action is required", map[string]interface{}{"field": "action"}))
		return
	}

	action := models.SupervisorAction{
		Action:      req.Action,
		Details:     req.Details,
		PerformedAt: a.now().UTC(),
		PerformedBy: UserFromContext(r.Context()),
	}
	if _, err := a.store.UpdateCall(r.Context(), callID, store.CallUpdate{AppendAction: &action}); err != nil {
		a.fail(w, r, err)
		return
	}

	a.logger.WithFields(logrus.Fields{
		"call_id":      callID,
		"action":       action.Action,
		"performed_by": action.PerformedBy,
	}).Info("Supervisor action recorded")

	a.publisher.Publish(events.Event{
		Type: events.SupervisorAction,
		Data: events.SupervisorActionData{CallID: callID, Action: action},
	})
	writeMessage(w, "Action '"+action.Action+"' performed on "+callID)
}
