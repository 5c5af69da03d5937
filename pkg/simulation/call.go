package simulation

import (
	"math"
	"strings"
	"sync"
	"time"

	"callmonitor/pkg/models"
)

// callState is the engine-side record of one active call. mu is held for the
// whole of an advancement or teardown so a call never races with itself.
type callState struct {
	mu sync.Mutex

	id           string
	script       Script
	issueTitle   string
	agentID      string
	agentName    string
	customerName string
	startedAt    time.Time

	// cursor always equals len(transcript)
	cursor     int
	transcript []models.Utterance
	duration   int
	ended      bool
}

func newCallState(id string, script Script, profile AgentProfile, customerName string, startedAt time.Time) *callState {
	return &callState{
		id:           id,
		script:       script,
		issueTitle:   issueTitle(script.Type),
		agentID:      profile.AgentID,
		agentName:    profile.Name,
		customerName: customerName,
		startedAt:    startedAt,
		transcript:   []models.Utterance{},
	}
}

func (c *callState) exhausted() bool {
	return c.cursor >= len(c.script.Messages)
}

// render substitutes participant names into the line at the cursor
func (c *callState) render() Line {
	line := c.script.Messages[c.cursor]
	r := strings.NewReplacer("{agent}", c.agentName, "{customer}", c.customerName)
	return Line{Speaker: line.Speaker, Text: r.Replace(line.Text)}
}

// snapshot returns the mean sentiment and duration last persisted for the call
func (c *callState) snapshot() (float64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return meanSentiment(c.transcript), c.duration
}

// issueTitle turns "billing_dispute" into "Billing Dispute"
func issueTitle(scriptType string) string {
	words := strings.Split(scriptType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func meanSentiment(transcript []models.Utterance) float64 {
	if len(transcript) == 0 {
		return 0
	}
	var sum float64
	for _, u := range transcript {
		sum += u.Analysis.Sentiment
	}
	return sum / float64(len(transcript))
}

// healthScore maps a mean sentiment onto 0..100
func healthScore(mean float64) int {
	h := math.Round(50 + mean*50)
	return int(math.Max(0, math.Min(100, h)))
}

// initialSummary is the assessment a call carries before its first line
func initialSummary(script Script) models.Summary {
	return models.Summary{
		OverallSentiment:   0,
		SentimentTrend:     models.TrendStable,
		PrimaryIssue:       issueTitle(script.Type),
		TopicsDiscussed:    []string{script.Type},
		RiskLevel:          models.RiskLow,
		ChurnProbability:   0.1,
		RecommendedActions: []string{},
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
