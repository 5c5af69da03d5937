package http

import (
	"math"
	"net/http"
	"sort"
	"time"

	"callmonitor/pkg/analyzer"
	"callmonitor/pkg/models"
	"callmonitor/pkg/store"
)

// RealtimeAnalytics is the dashboard header snapshot
type RealtimeAnalytics struct {
	ActiveCalls     int     `json:"active_calls"`
	AvgSentiment    float64 `json:"avg_sentiment"`
	AlertsCount     int     `json:"alerts_count"`
	LongestCall     int     `json:"longest_call"`
	TotalCallsToday int     `json:"total_calls_today"`
	ResolvedToday   int     `json:"resolved_today"`
	AvgHealthScore  float64 `json:"avg_health_score"`
}

// HourBucket counts calls started within one hour of today
type HourBucket struct {
	Hour         int     `json:"hour"`
	Calls        int     `json:"calls"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// IssueCount is the number of today's calls with a primary issue
type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// Export is the ended-call dump
type Export struct {
	ExportData []*models.Call `json:"export_data"`
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
}

func (a *API) realtimeAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := store.ActiveCallStats(ctx, a.store)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	today := store.CallFilter{StartedAfter: a.startOfDay()}
	total, err := a.store.CountCalls(ctx, today)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	today.Status = models.CallEnded
	resolved, err := a.store.CountCalls(ctx, today)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	alerts, err := a.store.CountAlerts(ctx, store.AlertFilter{Status: models.AlertActive})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RealtimeAnalytics{
		ActiveCalls:     stats.ActiveCalls,
		AvgSentiment:    analyzer.Round2(stats.AvgSentiment),
		AlertsCount:     alerts,
		LongestCall:     stats.LongestDuration,
		TotalCallsToday: total,
		ResolvedToday:   resolved,
		AvgHealthScore:  math.Round(stats.AvgHealthScore*10) / 10,
	})
}

// hourlyAnalytics buckets today's calls by start hour, up to the current hour
func (a *API) hourlyAnalytics(w http.ResponseWriter, r *http.Request) {
	dayStart := a.startOfDay()
	calls, err := a.store.ListCalls(r.Context(),
		store.CallFilter{StartedAfter: dayStart},
		store.ListOptions{OmitTranscript: true})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	current := a.now().UTC().Hour()
	buckets := make([]HourBucket, current+1)
	sums := make([]float64, current+1)
	for i := range buckets {
		buckets[i].Hour = i
	}
	for _, c := range calls {
		h := c.StartedAt.UTC().Hour()
		if h > current {
			continue
		}
		buckets[h].Calls++
		sums[h] += c.AISummary.OverallSentiment
	}
	for i := range buckets {
		if buckets[i].Calls > 0 {
			buckets[i].AvgSentiment = analyzer.Round2(sums[i] / float64(buckets[i].Calls))
		}
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (a *API) issueAnalytics(w http.ResponseWriter, r *http.Request) {
	calls, err := a.store.ListCalls(r.Context(),
		store.CallFilter{StartedAfter: a.startOfDay()},
		store.ListOptions{OmitTranscript: true})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	counts := make(map[string]int)
	for _, c := range calls {
		issue := c.AISummary.PrimaryIssue
		if issue == "" {
			issue = "Unknown"
		}
		counts[issue]++
	}

	issues := make([]IssueCount, 0, len(counts))
	for issue, n := range counts {
		issues = append(issues, IssueCount{Issue: issue, Count: n})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Count != issues[j].Count {
			return issues[i].Count > issues[j].Count
		}
		return issues[i].Issue < issues[j].Issue
	})
	writeJSON(w, http.StatusOK, issues)
}

func (a *API) exportAnalytics(w http.ResponseWriter, r *http.Request) {
	calls, err := a.store.ListCalls(r.Context(),
		store.CallFilter{Status: models.CallEnded},
		store.ListOptions{Limit: maxPageSize, Sort: store.NewestFirst, OmitTranscript: true})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Export{ExportData: calls, ExportedAt: a.now().UTC(), Count: len(calls)})
}
