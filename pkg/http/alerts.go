package http

import (
	"net/http"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/events"
	"callmonitor/pkg/models"
	"callmonitor/pkg/store"

	"github.com/sirupsen/logrus"
)

func (a *API) activeAlerts(w http.ResponseWriter, r *http.Request) {
	_, limit, err := pageParams(r, 50)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	alerts, err := a.store.ListAlerts(r.Context(),
		store.AlertFilter{Status: models.AlertActive},
		store.ListOptions{Limit: limit, Sort: store.NewestFirst})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (a *API) alertHistory(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r, 100)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	alerts, err := a.store.ListAlerts(r.Context(), store.AlertFilter{},
		store.ListOptions{Skip: skip, Limit: limit, Sort: store.NewestFirst})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// acknowledgeAlert only moves active alerts
func (a *API) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := r.PathValue("id")
	user := UserFromContext(r.Context())
	now := a.now().UTC()
	status := models.AlertAcknowledged

	_, err := a.store.UpdateAlert(r.Context(), alertID, store.AlertUpdate{
		Status:         &status,
		AcknowledgedBy: &user,
		AcknowledgedAt: &now,
		RequireStatus:  models.AlertActive,
	})
	if errors.IsErrorType(err, errors.ErrAlertNotFound) || errors.IsErrorType(err, errors.ErrFailedPrecondition) {
		a.fail(w, r, errors.NewAlertNotFound(alertID, "Alert not found or already acknowledged"))
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.logger.WithFields(logrus.Fields{"alert_id": alertID, "acknowledged_by": user}).Info("Alert acknowledged")
	a.publisher.Publish(events.Event{Type: events.AlertAcknowledged, Data: events.AlertRefData{AlertID: alertID}})
	writeMessage(w, "Alert acknowledged")
}

func (a *API) resolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := r.PathValue("id")
	user := UserFromContext(r.Context())
	notes := r.URL.Query().Get("notes")
	now := a.now().UTC()
	status := models.AlertResolved

	_, err := a.store.UpdateAlert(r.Context(), alertID, store.AlertUpdate{
		Status:          &status,
		AcknowledgedBy:  &user,
		AcknowledgedAt:  &now,
		ResolutionNotes: &notes,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.logger.WithFields(logrus.Fields{"alert_id": alertID, "resolved_by": user}).Info("Alert resolved")
	a.publisher.Publish(events.Event{Type: events.AlertResolved, Data: events.AlertRefData{AlertID: alertID}})
	writeMessage(w, "Alert resolved")
}
