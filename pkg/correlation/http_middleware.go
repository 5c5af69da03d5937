package correlation

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPMiddleware assigns correlation IDs and logs each completed request
type HTTPMiddleware struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewHTTPMiddleware creates the middleware
func NewHTTPMiddleware(logger *logrus.Logger) *HTTPMiddleware {
	return &HTTPMiddleware{logger: logger, now: time.Now}
}

// Middleware wraps next
func (m *HTTPMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.now()

		id := Sanitize(r.Header.Get(HTTPHeader))
		if id.IsEmpty() {
			id = Sanitize(r.Header.Get(HTTPRequestIDHeader))
		}
		if id.IsEmpty() {
			id = New()
		}
		w.Header().Set(HTTPHeader, id.String())

		rw := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(WithID(r.Context(), id)))

		fields := logrus.Fields{
			"correlation_id": id.String(),
			"method":         r.Method,
			"path":           r.URL.Path,
			"status":         rw.statusCode,
			"duration_ms":    m.now().Sub(start).Milliseconds(),
			"client_ip":      clientIP(r),
		}
		switch {
		case rw.statusCode >= 500:
			m.logger.WithFields(fields).Error("HTTP request completed with server error")
		case rw.statusCode >= 400:
			m.logger.WithFields(fields).Warn("HTTP request completed with client error")
		default:
			m.logger.WithFields(fields).Debug("HTTP request completed")
		}
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *responseWrapper) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWrapper) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the wrapper
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	w.written = true
	return h.Hijack()
}

func (w *responseWrapper) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
