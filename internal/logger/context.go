package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds connection-scoped logging context
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	Role       string    // connection role (caller, service, monitor, ctl)
	ConnID     uint64    // connection identifier
	MethodPath string    // dotted method path of the in-flight call, if any
	UID        uint32    // peer effective user ID (SO_PEERCRED)
	GID        uint32    // peer effective group ID (SO_PEERCRED)
	StartTime  time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a connection with the given role
func NewLogContext(role string, connID uint64) *LogContext {
	return &LogContext{
		Role:      role,
		ConnID:    connID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		Role:       lc.Role,
		ConnID:     lc.ConnID,
		MethodPath: lc.MethodPath,
		UID:        lc.UID,
		GID:        lc.GID,
		StartTime:  lc.StartTime,
	}
}

// WithMethodPath returns a copy with the in-flight method path set
func (lc *LogContext) WithMethodPath(path string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.MethodPath = path
	}
	return clone
}

// WithPeerCredentials returns a copy with the peer's credentials set
func (lc *LogContext) WithPeerCredentials(uid, gid uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.UID = uid
		clone.GID = gid
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
