// Package summary produces call assessments. Summarize is the deterministic
// rule-based form; TwoTier puts an optional network summarizer in front of it.
package summary

import (
	"sort"

	"callmonitor/pkg/analyzer"
	"callmonitor/pkg/models"
)

const (
	trendThreshold  = 0.15
	trendMinLines   = 4
	maxTopics       = 5
	churnFlagged    = 0.8
	churnHighRisk   = 0.4
	churnBaseline   = 0.1
	defaultIssue    = "Customer service inquiry"
	emptyIssue      = "General inquiry"
	followUpAction  = "Follow up with customer"
	reviewRecording = "Review call recording"
)

// Empty is the summary of a call with no transcript yet
func Empty() models.Summary {
	return models.Summary{
		OverallSentiment:   0.0,
		SentimentTrend:     models.TrendStable,
		PrimaryIssue:       emptyIssue,
		TopicsDiscussed:    []string{"general"},
		RiskLevel:          models.RiskLow,
		ChurnProbability:   churnBaseline,
		RecommendedActions: []string{followUpAction},
	}
}

// Summarize derives a summary from the transcript so far. It never fails.
func Summarize(transcript []models.Utterance) models.Summary {
	if len(transcript) == 0 {
		return Empty()
	}

	scores := make([]float64, len(transcript))
	churnFlag := false
	intents := make(map[string]struct{})
	for i, u := range transcript {
		scores[i] = u.Analysis.Sentiment
		if u.Analysis.HasFlag(models.FlagChurnRisk) {
			churnFlag = true
		}
		if u.Analysis.Intent != "" {
			intents[string(u.Analysis.Intent)] = struct{}{}
		}
	}

	avg := mean(scores)
	risk := RiskFor(avg)

	churn := churnBaseline
	switch {
	case churnFlag:
		churn = churnFlagged
	case risk == models.RiskHigh || risk == models.RiskCritical:
		churn = churnHighRisk
	}

	topics := make([]string, 0, len(intents))
	for intent := range intents {
		topics = append(topics, intent)
	}
	sort.Strings(topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}

	return models.Summary{
		OverallSentiment:   analyzer.Round2(avg),
		SentimentTrend:     trendOf(scores),
		PrimaryIssue:       defaultIssue,
		TopicsDiscussed:    topics,
		RiskLevel:          risk,
		ChurnProbability:   analyzer.Round2(churn),
		RecommendedActions: []string{reviewRecording, followUpAction},
	}
}

// RiskFor buckets a mean sentiment
func RiskFor(avg float64) models.RiskLevel {
	switch {
	case avg < -0.6:
		return models.RiskCritical
	case avg < -0.3:
		return models.RiskHigh
	case avg < 0:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// the second half takes the extra line when the count is odd
func trendOf(scores []float64) models.Trend {
	if len(scores) < trendMinLines {
		return models.TrendStable
	}
	half := len(scores) / 2
	first, second := mean(scores[:half]), mean(scores[half:])
	switch {
	case second > first+trendThreshold:
		return models.TrendImproving
	case second < first-trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
