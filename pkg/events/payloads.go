package events

import "callmonitor/pkg/models"

// CallUpdateData is sent after each advancement of a call
type CallUpdateData struct {
	CallID          string           `json:"call_id"`
	TranscriptEntry models.Utterance `json:"transcript_entry"`
	HealthScore     int              `json:"health_score"`
	AvgSentiment    float64          `json:"avg_sentiment"`
	DurationSeconds int              `json:"duration_seconds"`
}

// CallEndedData is sent once when a call ends
type CallEndedData struct {
	CallID   string `json:"call_id"`
	Duration int    `json:"duration"`
}

// AlertRefData identifies an alert whose status changed
type AlertRefData struct {
	AlertID string `json:"alert_id"`
}

// SupervisorActionData is sent when a supervisor acts on a call
type SupervisorActionData struct {
	CallID string                  `json:"call_id"`
	Action models.SupervisorAction `json:"action"`
}

// MetricsData is the aggregate snapshot sent at the end of every cycle
type MetricsData struct {
	ActiveCalls  int     `json:"active_calls"`
	AvgSentiment float64 `json:"avg_sentiment"`
	AlertsCount  int     `json:"alerts_count"`
	LongestCall  int     `json:"longest_call"`
}
