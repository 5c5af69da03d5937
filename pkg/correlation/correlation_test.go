package correlation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)
	return logger, &buf
}

func TestNewGeneratesUniqueIDs(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := New()
		require.False(t, id.IsEmpty())
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, ID("abc-123"), Sanitize("  abc-123 "))
	assert.True(t, Sanitize("").IsEmpty())
	assert.True(t, Sanitize("has space").IsEmpty())
	assert.True(t, Sanitize("line\nbreak").IsEmpty())
	assert.True(t, Sanitize(strings.Repeat("a", maxIDLength+1)).IsEmpty())
}

func TestContextRoundTrip(t *testing.T) {
	assert.True(t, FromContext(context.Background()).IsEmpty())
	ctx := WithID(context.Background(), "req-1")
	assert.Equal(t, ID("req-1"), FromContext(ctx))

	logger, _ := testLogger()
	assert.Equal(t, "req-1", Logger(ctx, logger).Data["correlation_id"])
	assert.NotContains(t, Logger(context.Background(), logger).Data, "correlation_id")
}

func TestMiddlewareReusesIncomingID(t *testing.T) {
	logger, buf := testLogger()
	var seen ID
	h := NewHTTPMiddleware(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/calls/active", nil)
	req.Header.Set(HTTPRequestIDHeader, "upstream-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, ID("upstream-42"), seen)
	assert.Equal(t, "upstream-42", rec.Header().Get(HTTPHeader))
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), "client error")
}

func TestMiddlewareGeneratesID(t *testing.T) {
	logger, _ := testLogger()
	h := NewHTTPMiddleware(logger).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, FromContext(r.Context()).IsEmpty())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HTTPHeader, "bad id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	got := rec.Header().Get(HTTPHeader)
	assert.NotEmpty(t, got)
	assert.NotEqual(t, "bad id", got)
}
