package simulation

import (
	"context"
	"fmt"
	"time"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/events"
	"callmonitor/pkg/metrics"
	"callmonitor/pkg/models"
	"callmonitor/pkg/store"

	"github.com/sirupsen/logrus"
)

const maxTriggerPhrase = 100

// AlertRule is what a flag turns into
type AlertRule struct {
	Title    string
	Severity models.AlertSeverity
	Type     models.AlertType
}

var alertRules = map[models.Flag]AlertRule{
	models.FlagChurnRisk:        {"Churn Risk Detected", models.SeverityCritical, models.AlertNegativeSentiment},
	models.FlagEscalationNeeded: {"Escalation Request", models.SeverityWarning, models.AlertEscalationRequest},
	models.FlagComplianceRisk:   {"Compliance Risk", models.SeverityCritical, models.AlertCompliance},
	models.FlagProfanity:        {"Profanity Detected", models.SeverityWarning, models.AlertAgentIssue},
}

var defaultAlertRule = AlertRule{"Issue Detected", models.SeverityInfo, models.AlertGeneric}

// RuleFor looks up the alert rule for a flag
func RuleFor(flag models.Flag) AlertRule {
	if r, ok := alertRules[flag]; ok {
		return r
	}
	return defaultAlertRule
}

// BuildAlert derives the alert record for one flag firing
func BuildAlert(callID, customerName, agentName string, flag models.Flag, phrase string, sentiment float64, now time.Time) *models.Alert {
	rule := RuleFor(flag)
	return &models.Alert{
		AlertID:   "ALT-" + shortHex(8),
		CallID:    callID,
		AlertType: rule.Type,
		Severity:  rule.Severity,
		Title:     rule.Title,
		Message:   fmt.Sprintf("%s - %s (%s)", rule.Title, callID, customerName),
		Details: models.AlertDetails{
			TriggerPhrase:  truncateRunes(phrase, maxTriggerPhrase),
			SentimentScore: sentiment,
			Context:        fmt.Sprintf("Customer: %s, Agent: %s", customerName, agentName),
		},
		CreatedAt: now,
		Status:    models.AlertActive,
	}
}

// raiseAlert stores the alert, records it on the call and announces it.
// cs.mu must be held.
func (e *Engine) raiseAlert(ctx context.Context, cs *callState, flag models.Flag, phrase string, sentiment float64) error {
	alert := BuildAlert(cs.id, cs.customerName, cs.agentName, flag, phrase, sentiment, e.opts.Now())

	if err := e.store.InsertAlert(ctx, alert); err != nil {
		return errors.Wrap(err, "failed to insert alert", map[string]interface{}{"alert_id": alert.AlertID})
	}

	trigger := models.AlertTrigger{
		AlertType:   alert.AlertType,
		Severity:    alert.Severity,
		Message:     alert.Message,
		TriggeredAt: alert.CreatedAt,
	}
	if _, err := e.store.UpdateCall(ctx, cs.id, store.CallUpdate{AppendAlert: &trigger}); err != nil {
		return errors.Wrap(err, "failed to record alert on call", map[string]interface{}{"alert_id": alert.AlertID})
	}

	metrics.RecordAlert(string(alert.AlertType), string(alert.Severity))
	e.logger.WithFields(logrus.Fields{
		"call_id":  cs.id,
		"alert_id": alert.AlertID,
		"type":     alert.AlertType,
		"severity": alert.Severity,
	}).Info("Alert raised")

	e.publisher.Publish(events.Event{Type: events.AlertNew, Data: alert})
	return nil
}
