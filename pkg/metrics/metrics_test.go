package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersAndHandler(t *testing.T) {
	Init(logrus.New())
	EnableMetrics(true)

	SetActiveCalls(7)
	RecordAlert("compliance", "critical")
	RecordAlert("compliance", "critical")
	RecordSummary("fallback")
	ObserveCycle()()

	assert.Equal(t, 7.0, testutil.ToFloat64(ActiveCalls))
	assert.Equal(t, 2.0, testutil.ToFloat64(AlertsRaised.WithLabelValues("compliance", "critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SummarizerOutcomes.WithLabelValues("fallback")))

	mux := http.NewServeMux()
	RegisterHandler(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "callmonitor_active_calls 7")
}

func TestDisabledRecordersAreNoops(t *testing.T) {
	Init(logrus.New())
	EnableMetrics(false)
	defer EnableMetrics(true)

	before := testutil.ToFloat64(CallsStarted.WithLabelValues("billing_dispute"))
	RecordCallStarted("billing_dispute")
	assert.Equal(t, before, testutil.ToFloat64(CallsStarted.WithLabelValues("billing_dispute")))
}
