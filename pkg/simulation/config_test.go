package simulation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.NumCalls)
	assert.Equal(t, 0.3, cfg.IssueFrequency)
	assert.Equal(t, DistributionNormal, cfg.SentimentDistribution)
	assert.Equal(t, 4*time.Second, cfg.MessageInterval)
}

func TestConfigJSONUsesSeconds(t *testing.T) {
	data, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.JSONEq(t, `{"num_calls":12,"issue_frequency":0.3,"sentiment_distribution":"normal","message_interval":4}`, string(data))
}

func TestConfigUpdateDecodesPartialJSON(t *testing.T) {
	var u ConfigUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"num_calls": 7, "message_interval": 2}`), &u))
	assert.False(t, u.Empty())
	require.NotNil(t, u.NumCalls)
	assert.Nil(t, u.IssueFrequency)

	merged, err := DefaultConfig().Merge(u)
	require.NoError(t, err)
	assert.Equal(t, 7, merged.NumCalls)
	assert.Equal(t, 2*time.Second, merged.MessageInterval)
	assert.Equal(t, DefaultIssueFrequency, merged.IssueFrequency)

	assert.True(t, ConfigUpdate{}.Empty())
}

func TestMergeLeavesOriginalOnError(t *testing.T) {
	cfg := DefaultConfig()
	out, err := cfg.Merge(ConfigUpdate{NumCalls: intPtr(3), IssueFrequency: floatPtr(-0.1)})
	require.Error(t, err)
	assert.Equal(t, cfg, out)
}

func TestAlertRules(t *testing.T) {
	r := RuleFor("churn_risk")
	assert.Equal(t, "Churn Risk Detected", r.Title)
	r = RuleFor("something_else")
	assert.Equal(t, "Issue Detected", r.Title)
	assert.EqualValues(t, "info", r.Severity)
	assert.EqualValues(t, "generic", r.Type)

	long := ""
	for i := 0; i < 30; i++ {
		long += "héllo"
	}
	a := BuildAlert("CALL-1", "Pat Doe", "Sarah Mitchell", "profanity", long, -0.5, time.Now())
	assert.Equal(t, "Profanity Detected - CALL-1 (Pat Doe)", a.Message)
	assert.Equal(t, "Customer: Pat Doe, Agent: Sarah Mitchell", a.Details.Context)
	assert.Len(t, []rune(a.Details.TriggerPhrase), 100)
	assert.EqualValues(t, "warning", a.Severity)
	assert.EqualValues(t, "agent_issue", a.AlertType)
}

func TestCatalog(t *testing.T) {
	assert.Len(t, Scenarios(), 8)
	assert.Equal(t, 20, AgentCatalogSize())
	for _, kind := range TriggerKinds() {
		s, ok := TriggerScript(kind)
		require.True(t, ok, kind)
		assert.Equal(t, kind, s.Type)
		assert.NotEmpty(t, s.Messages)
	}
	seen := map[string]bool{}
	for _, p := range agentProfiles {
		assert.False(t, seen[p.AgentID])
		seen[p.AgentID] = true
	}
}
