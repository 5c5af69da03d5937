// Package correlation tags HTTP requests with an ID that follows them
// through the logs.
package correlation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// HTTPHeader carries the correlation ID on requests and responses
	HTTPHeader = "X-Correlation-ID"
	// HTTPRequestIDHeader is accepted as an alternative on incoming requests
	HTTPRequestIDHeader = "X-Request-ID"

	maxIDLength = 128
)

type contextKey struct{}

// ID is a request correlation ID
type ID string

func (id ID) String() string { return string(id) }

// IsEmpty reports whether no ID is set
func (id ID) IsEmpty() bool { return id == "" }

// New generates a random correlation ID
func New() ID {
	return ID(uuid.NewString())
}

// Sanitize accepts a caller supplied ID if it is printable and short enough
func Sanitize(raw string) ID {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxIDLength {
		return ""
	}
	for _, r := range raw {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return ID(raw)
}

// WithID attaches id to ctx
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the ID attached to ctx, or an empty ID
func FromContext(ctx context.Context) ID {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(ID)
	return id
}

// Logger returns an entry carrying the correlation ID of ctx when present
func Logger(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if id := FromContext(ctx); !id.IsEmpty() {
		entry = entry.WithField("correlation_id", id.String())
	}
	return entry
}
