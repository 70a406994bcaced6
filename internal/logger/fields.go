package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Connection & Role
	// ========================================================================
	KeyRole   = "role"    // connection role: caller, service, monitor, ctl
	KeyConnID = "conn_id" // connection identifier

	// ========================================================================
	// Protocol & Dispatch
	// ========================================================================
	KeyMsgType    = "msg_type"    // wire message type name
	KeySoType     = "so_type"     // session-open subtype name
	KeyMethodPath = "method_path" // dotted service method path
	KeyToken      = "token"       // call correlation token
	KeyErrCode    = "err_code"    // protocol error code

	// ========================================================================
	// Peer credentials
	// ========================================================================
	KeyUID = "uid" // peer effective user ID (SO_PEERCRED)
	KeyGID = "gid" // peer effective group ID (SO_PEERCRED)
	KeyPID = "pid" // peer process ID (SO_PEERCRED)

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyBytes      = "bytes"       // payload size in bytes
	KeySockPath   = "sock_path"   // bus socket path
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Connection & Role
// ----------------------------------------------------------------------------

// Role returns a slog.Attr for the connection role
func Role(role string) slog.Attr {
	return slog.String(KeyRole, role)
}

// ConnID returns a slog.Attr for the connection identifier
func ConnID(id uint64) slog.Attr {
	return slog.Uint64(KeyConnID, id)
}

// ----------------------------------------------------------------------------
// Protocol & Dispatch
// ----------------------------------------------------------------------------

// MsgType returns a slog.Attr for a wire message type name
func MsgType(name string) slog.Attr {
	return slog.String(KeyMsgType, name)
}

// SoType returns a slog.Attr for a session-open subtype name
func SoType(name string) slog.Attr {
	return slog.String(KeySoType, name)
}

// MethodPath returns a slog.Attr for a dotted service method path
func MethodPath(path string) slog.Attr {
	return slog.String(KeyMethodPath, path)
}

// Token returns a slog.Attr for a call correlation token
func Token(tok uint32) slog.Attr {
	return slog.Any(KeyToken, tok)
}

// ErrCode returns a slog.Attr for a protocol error code
func ErrCode(code int) slog.Attr {
	return slog.Int(KeyErrCode, code)
}

// ----------------------------------------------------------------------------
// Peer credentials
// ----------------------------------------------------------------------------

// UID returns a slog.Attr for peer user ID
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// GID returns a slog.Attr for peer group ID
func GID(gid uint32) slog.Attr {
	return slog.Any(KeyGID, gid)
}

// PID returns a slog.Attr for peer process ID
func PID(pid int32) slog.Attr {
	return slog.Any(KeyPID, pid)
}

// ----------------------------------------------------------------------------
// Operation metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Bytes returns a slog.Attr for a payload size in bytes
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// SockPath returns a slog.Attr for the bus socket path
func SockPath(path string) slog.Attr {
	return slog.String(KeySockPath, path)
}

// Hex formats an arbitrary byte slice as a hex string attribute under the
// given key, useful for dumping raw frame contents at debug level.
func Hex(key string, b []byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("%x", b))
}
