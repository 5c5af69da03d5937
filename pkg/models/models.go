// Package models defines the documents exchanged between the simulation
// engine, the store and dashboard clients.
package models

import (
	"slices"
	"time"
)

// Speaker identifies who said a transcript line
type Speaker string

const (
	SpeakerAgent    Speaker = "agent"
	SpeakerCustomer Speaker = "customer"
)

// Intent is the coarse purpose assigned to an utterance
type Intent string

const (
	IntentEscalation Intent = "escalation"
	IntentComplaint  Intent = "complaint"
	IntentRequest    Intent = "request"
	IntentInquiry    Intent = "inquiry"
	IntentGreeting   Intent = "greeting"
	IntentClosing    Intent = "closing"
	IntentEmpathy    Intent = "empathy"
	IntentResolution Intent = "resolution"
)

// Flag names a risk signal raised by the analyzer
type Flag string

const (
	FlagChurnRisk        Flag = "churn_risk"
	FlagEscalationNeeded Flag = "escalation_needed"
	FlagComplianceRisk   Flag = "compliance_risk"
	FlagProfanity        Flag = "profanity"
)

// Entity is a value extracted from an utterance
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Analysis is the scoring result for a single utterance
type Analysis struct {
	Sentiment float64  `json:"sentiment"`
	Intent    Intent   `json:"intent"`
	Entities  []Entity `json:"entities"`
	Flags     []Flag   `json:"flags"`
}

// HasFlag reports whether the analysis raised f
func (a Analysis) HasFlag(f Flag) bool {
	for _, flag := range a.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// Utterance is one scored transcript line
type Utterance struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Analysis  Analysis  `json:"analysis"`
}

// RiskLevel buckets the mean sentiment of a call
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Trend describes how sentiment moved across a call
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
)

// Summary is the rolling assessment of a call
type Summary struct {
	OverallSentiment   float64   `json:"overall_sentiment"`
	SentimentTrend     Trend     `json:"sentiment_trend"`
	PrimaryIssue       string    `json:"primary_issue"`
	TopicsDiscussed    []string  `json:"topics_discussed"`
	RiskLevel          RiskLevel `json:"risk_level"`
	ChurnProbability   float64   `json:"churn_probability"`
	RecommendedActions []string  `json:"recommended_actions"`
}

// Customer is the synthetic caller profile
type Customer struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Phone              string  `json:"phone"`
	AccountType        string  `json:"account_type"`
	LifetimeValue      float64 `json:"lifetime_value"`
	PreviousCallsCount int     `json:"previous_calls_count"`
	LastIssue          string  `json:"last_issue"`
}

// AgentRef is the agent as embedded in a call
type AgentRef struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// Resolution type values
const (
	ResolutionSolved            = "solved"
	ResolutionEscalated         = "escalated"
	ResolutionCallbackScheduled = "callback_scheduled"
)

// Resolution records how a call ended
type Resolution struct {
	Resolved             bool   `json:"resolved"`
	ResolutionType       string `json:"resolution_type"`
	CustomerSatisfaction int    `json:"customer_satisfaction"`
}

// AlertTrigger is the alert record kept on the call itself
type AlertTrigger struct {
	AlertType    AlertType     `json:"alert_type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	TriggeredAt  time.Time     `json:"triggered_at"`
	Acknowledged bool          `json:"acknowledged"`
}

// SupervisorAction is an intervention recorded against a call
type SupervisorAction struct {
	Action      string                 `json:"action"`
	Details     map[string]interface{} `json:"details,omitempty"`
	PerformedAt time.Time              `json:"performed_at"`
	PerformedBy string                 `json:"performed_by"`
}

// CallStatus is the lifecycle state of a call
type CallStatus string

const (
	CallActive CallStatus = "active"
	CallEnded  CallStatus = "ended"
)

// Call is the persisted call document
type Call struct {
	CallID            string             `json:"call_id"`
	Status            CallStatus         `json:"status"`
	Channel           string             `json:"channel"`
	StartedAt         time.Time          `json:"started_at"`
	EndedAt           *time.Time         `json:"ended_at,omitempty"`
	DurationSeconds   int                `json:"duration_seconds"`
	Customer          Customer           `json:"customer"`
	Agent             AgentRef           `json:"agent"`
	Scenario          string             `json:"scenario"`
	Transcript        []Utterance        `json:"transcript"`
	AISummary         Summary            `json:"ai_summary"`
	HealthScore       int                `json:"health_score"`
	AlertsTriggered   []AlertTrigger     `json:"alerts_triggered"`
	SupervisorActions []SupervisorAction `json:"supervisor_actions"`
	Resolution        *Resolution        `json:"resolution,omitempty"`
}

// Clone returns a deep copy of the call
func (c *Call) Clone() *Call {
	if c == nil {
		return nil
	}
	out := *c
	if c.EndedAt != nil {
		t := *c.EndedAt
		out.EndedAt = &t
	}
	if c.Resolution != nil {
		r := *c.Resolution
		out.Resolution = &r
	}
	out.Agent.Skills = slices.Clone(c.Agent.Skills)
	out.Transcript = slices.Clone(c.Transcript)
	out.AlertsTriggered = slices.Clone(c.AlertsTriggered)
	out.SupervisorActions = slices.Clone(c.SupervisorActions)
	out.AISummary.TopicsDiscussed = slices.Clone(c.AISummary.TopicsDiscussed)
	out.AISummary.RecommendedActions = slices.Clone(c.AISummary.RecommendedActions)
	return &out
}

// AvgSentiment is the mean utterance sentiment, zero for an empty transcript
func (c *Call) AvgSentiment() float64 {
	if len(c.Transcript) == 0 {
		return 0
	}
	var sum float64
	for _, u := range c.Transcript {
		sum += u.Analysis.Sentiment
	}
	return sum / float64(len(c.Transcript))
}

// AgentStatus is the availability of an agent
type AgentStatus string

const (
	AgentAvailable AgentStatus = "available"
	AgentOnCall    AgentStatus = "on_call"
)

// Performance carries the seeded agent statistics
type Performance struct {
	CallsHandled            int     `json:"calls_handled"`
	AvgHandleTime           float64 `json:"avg_handle_time"`
	AvgSentiment            float64 `json:"avg_sentiment,omitempty"`
	EscalationRate          float64 `json:"escalation_rate,omitempty"`
	ResolutionRate          float64 `json:"resolution_rate,omitempty"`
	CustomerSatisfactionAvg float64 `json:"customer_satisfaction_avg,omitempty"`
	QualityScore            float64 `json:"quality_score,omitempty"`
}

// Shift is an agent's working window
type Shift struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	BreaksTaken int       `json:"breaks_taken"`
}

// Agent is the persisted agent document
type Agent struct {
	AgentID            string      `json:"agent_id"`
	Name               string      `json:"name"`
	Skills             []string    `json:"skills"`
	AvatarIdx          int         `json:"avatar_idx"`
	Status             AgentStatus `json:"status"`
	CurrentCallID      string      `json:"current_call_id,omitempty"`
	Shift              Shift       `json:"shift"`
	PerformanceToday   Performance `json:"performance_today"`
	PerformanceMonthly Performance `json:"performance_monthly"`
}

// Ref returns the embedded form of the agent
func (a *Agent) Ref() AgentRef {
	return AgentRef{ID: a.AgentID, Name: a.Name, Skills: slices.Clone(a.Skills)}
}

// AlertType categorizes an alert
type AlertType string

const (
	AlertNegativeSentiment AlertType = "negative_sentiment"
	AlertEscalationRequest AlertType = "escalation_request"
	AlertCompliance        AlertType = "compliance"
	AlertAgentIssue        AlertType = "agent_issue"
	AlertGeneric           AlertType = "generic"
)

// AlertSeverity ranks alerts
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the workflow state of an alert
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// AlertDetails is the evidence captured when an alert fired
type AlertDetails struct {
	TriggerPhrase  string  `json:"trigger_phrase"`
	SentimentScore float64 `json:"sentiment_score"`
	Context        string  `json:"context"`
}

// Alert is the persisted alert document
type Alert struct {
	AlertID         string        `json:"alert_id"`
	CallID          string        `json:"call_id"`
	AlertType       AlertType     `json:"alert_type"`
	Severity        AlertSeverity `json:"severity"`
	Title           string        `json:"title"`
	Message         string        `json:"message"`
	Details         AlertDetails  `json:"details"`
	CreatedAt       time.Time     `json:"created_at"`
	Status          AlertStatus   `json:"status"`
	AcknowledgedBy  string        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at,omitempty"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
}
