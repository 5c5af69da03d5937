package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Standard error types that can be used throughout the application
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternalError      = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
	ErrUnavailable        = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrCanceled           = errors.New("operation canceled")

	// Domain-specific error sentinel values
	ErrUnknownTrigger        = errors.New("unknown trigger event")
	ErrCallNotFound          = errors.New("call not found")
	ErrCallNotActive         = errors.New("call is not active")
	ErrAgentNotFound         = errors.New("agent not found")
	ErrAlertNotFound         = errors.New("alert not found")
	ErrNoAgentAvailable      = errors.New("no agent available")
	ErrSummarizerUnavailable = errors.New("summarizer unavailable")
	ErrNotConnected          = errors.New("not connected")
)

// Error is a structured error carrying contextual fields, an optional code
// and the location where it was created.
type Error struct {
	original error
	message  string
	fields   map[string]interface{}
	file     string
	line     int

	// Code is an optional error code for categorization
	Code string
}

func fieldsOrEmpty(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 && fields[0] != nil {
		return fields[0]
	}
	return make(map[string]interface{})
}

func build(skip int, original error, message, code string, fields []map[string]interface{}) *Error {
	_, file, line, _ := runtime.Caller(skip + 1)
	return &Error{
		original: original,
		message:  message,
		fields:   fieldsOrEmpty(fields),
		file:     file,
		line:     line,
		Code:     code,
	}
}

// New creates a new structured error with the given message
func New(message string, fields ...map[string]interface{}) *Error {
	return build(1, errors.New(message), message, "", fields)
}

// Wrap wraps an existing error with additional context
func Wrap(err error, message string, fields ...map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	return build(1, err, message, GetErrorCode(err), fields)
}

func (e *Error) clone(extra int) *Error {
	out := &Error{
		original: e.original,
		message:  e.message,
		fields:   make(map[string]interface{}, len(e.fields)+extra),
		file:     e.file,
		line:     e.line,
		Code:     e.Code,
	}
	for k, v := range e.fields {
		out.fields[k] = v
	}
	return out
}

// WithField returns a copy of the error with one more context field
func (e *Error) WithField(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}
	out := e.clone(1)
	out.fields[key] = value
	return out
}

// WithFields returns a copy of the error with the given fields merged in
func (e *Error) WithFields(fields map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	out := e.clone(len(fields))
	for k, v := range fields {
		out.fields[k] = v
	}
	return out
}

// WithCode returns a copy of the error with the given code
func (e *Error) WithCode(code string) *Error {
	if e == nil {
		return nil
	}
	out := e.clone(0)
	out.Code = code
	return out
}

func (e *Error) Error() string {
	if e == nil || e.original == nil {
		return ""
	}
	if e.message == "" || e.message == e.original.Error() {
		return e.original.Error()
	}
	return fmt.Sprintf("%s: %v", e.message, e.original)
}

// Message returns the message without the wrapped cause
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.message == "" && e.original != nil {
		return e.original.Error()
	}
	return e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.original
}

// Is reports whether the wrapped error matches target
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	if errors.Is(e.original, target) {
		return true
	}
	return e == target
}

// Location returns the file:line where the error was created
func (e *Error) Location() string {
	if e == nil {
		return ""
	}
	parts := strings.Split(e.file, "/")
	return fmt.Sprintf("%s:%d", parts[len(parts)-1], e.line)
}

// GetFields returns the error's context fields
func (e *Error) GetFields() map[string]interface{} {
	if e == nil {
		return nil
	}
	return e.fields
}

// GetCode returns the error's code
func (e *Error) GetCode() string {
	if e == nil {
		return ""
	}
	return e.Code
}

// AsJSON returns the error in JSON-friendly map format
func (e *Error) AsJSON() map[string]interface{} {
	if e == nil {
		return nil
	}

	result := map[string]interface{}{
		"detail":   e.Message(),
		"location": e.Location(),
	}
	if e.Code != "" {
		result["code"] = e.Code
	}
	if len(e.fields) > 0 {
		result["context"] = e.fields
	}
	return result
}

// NewNotFound creates a not-found error
func NewNotFound(message string, fields ...map[string]interface{}) *Error {
	return build(1, ErrNotFound, message, "NOT_FOUND", fields)
}

// NewInvalidInput creates an invalid-input error
func NewInvalidInput(message string, fields ...map[string]interface{}) *Error {
	return build(1, ErrInvalidInput, message, "INVALID_INPUT", fields)
}

// NewInternalError creates an internal error
func NewInternalError(message string, fields ...map[string]interface{}) *Error {
	return build(1, ErrInternalError, message, "INTERNAL_ERROR", fields)
}

// NewUnknownTrigger reports a trigger event name with no script
func NewUnknownTrigger(kind string) *Error {
	return build(1, ErrUnknownTrigger, fmt.Sprintf("unknown event type: %s", kind), "UNKNOWN_TRIGGER",
		[]map[string]interface{}{{"event_type": kind}})
}

// NewCallNotFound creates an ErrCallNotFound for the given call
func NewCallNotFound(callID string) *Error {
	return build(1, ErrCallNotFound, "Call not found", "CALL_NOT_FOUND",
		[]map[string]interface{}{{"call_id": callID}})
}

// NewAgentNotFound creates an ErrAgentNotFound for the given agent
func NewAgentNotFound(agentID string) *Error {
	return build(1, ErrAgentNotFound, "Agent not found", "AGENT_NOT_FOUND",
		[]map[string]interface{}{{"agent_id": agentID}})
}

// NewAlertNotFound creates an ErrAlertNotFound with a caller-supplied message
func NewAlertNotFound(alertID, message string) *Error {
	return build(1, ErrAlertNotFound, message, "ALERT_NOT_FOUND",
		[]map[string]interface{}{{"alert_id": alertID}})
}

// IsErrorType checks if an error is of a specific error type
func IsErrorType(err, target error) bool {
	return errors.Is(err, target)
}

// GetErrorCode extracts the error code from an error if it's a structured error
func GetErrorCode(err error) string {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.GetCode()
	}
	return ""
}

// GetErrorFields extracts fields from an error if it's a structured error
func GetErrorFields(err error) map[string]interface{} {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.GetFields()
	}
	return nil
}
