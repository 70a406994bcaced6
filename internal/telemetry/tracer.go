package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for bus operations.
const (
	AttrConnRole   = "bbus.conn.role"
	AttrConnID     = "bbus.conn.id"
	AttrMethodPath = "bbus.method.path"
	AttrMsgType    = "bbus.msg.type"
	AttrToken      = "bbus.token"
	AttrErrCode    = "bbus.err.code"
	AttrUID        = "bbus.peer.uid"
	AttrGID        = "bbus.peer.gid"
	AttrPID        = "bbus.peer.pid"
)

// Span names for the two round trips the multiplexer cares about.
const (
	SpanClientCall = "bbus.clicall"
	SpanServerCall = "bbus.srvcall"
)

func ConnRole(role string) attribute.KeyValue { return attribute.String(AttrConnRole, role) }
func ConnID(id uint64) attribute.KeyValue     { return attribute.Int64(AttrConnID, int64(id)) }
func MethodPath(path string) attribute.KeyValue {
	return attribute.String(AttrMethodPath, path)
}
func MsgType(t string) attribute.KeyValue  { return attribute.String(AttrMsgType, t) }
func Token(tok uint32) attribute.KeyValue  { return attribute.Int64(AttrToken, int64(tok)) }
func ErrCode(code int) attribute.KeyValue  { return attribute.Int(AttrErrCode, code) }
func PeerUID(uid uint32) attribute.KeyValue { return attribute.Int64(AttrUID, int64(uid)) }
func PeerGID(gid uint32) attribute.KeyValue { return attribute.Int64(AttrGID, int64(gid)) }
func PeerPID(pid int32) attribute.KeyValue  { return attribute.Int64(AttrPID, int64(pid)) }

// StartCallSpan starts a span for a call dispatch round trip (CLICALL or
// SRVCALL), tagging it with the method path and correlation token.
func StartCallSpan(ctx context.Context, spanName, path string, token uint32) (context.Context, trace.Span) {
	return StartSpan(ctx, spanName, trace.WithAttributes(MethodPath(path), Token(token)))
}
