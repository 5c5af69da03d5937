package http

import (
	"net/http"

	"callmonitor/pkg/store"
)

func (a *API) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := a.store.ListAgents(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (a *API) agentDetail(w http.ResponseWriter, r *http.Request) {
	agent, err := a.store.GetAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (a *API) agentCalls(w http.ResponseWriter, r *http.Request) {
	_, limit, err := pageParams(r, 20)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	calls, err := a.store.ListCalls(r.Context(),
		store.CallFilter{AgentID: r.PathValue("id")},
		store.ListOptions{Limit: limit, Sort: store.NewestFirst, OmitTranscript: true})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}
