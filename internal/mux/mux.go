// Package mux implements the call multiplexer: per-call token allocation,
// the caller table, CLICALL dispatch (local invocation or SRVCALL
// forwarding), and SRVREPLY routing back to the original caller.
package mux

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/busybus/internal/bbuserr"
	"github.com/marmos91/busybus/internal/logger"
	"github.com/marmos91/busybus/internal/metrics"
	"github.com/marmos91/busybus/internal/object"
	"github.com/marmos91/busybus/internal/servicetree"
	"github.com/marmos91/busybus/internal/telemetry"
	"github.com/marmos91/busybus/internal/wire"
)

// Sender is the narrow surface the multiplexer needs from a connection: the
// ability to write a frame to it. Connection (internal/daemon) implements
// this; mux never otherwise depends on connection internals.
type Sender interface {
	SendFrame(h wire.Header, meta string, obj []byte) error
}

// Mux owns the token allocator and the caller table, and drives dispatch
// against a service tree. Not safe for concurrent use; the event loop is
// its only caller, by design (spec §5).
type Mux struct {
	tree    *servicetree.Tree
	callers map[uint32]Sender
	next    uint32
	log     *slog.Logger

	// metrics is nil-safe; a Mux built with plain New has no metrics and
	// every recording call below is a no-op.
	metrics *metrics.Metrics

	// pending holds the open span for a SRVCALL forwarded under a given
	// token. The span is ended and its entry removed when the matching
	// SRVREPLY arrives, or by RemoveCaller if the caller disconnects first.
	pending map[uint32]trace.Span
}

// New returns a multiplexer bound to tree, logging diagnostics to log.
func New(tree *servicetree.Tree, log *slog.Logger) *Mux {
	if log == nil {
		log = slog.Default()
	}
	return &Mux{tree: tree, callers: map[uint32]Sender{}, next: 0, log: log, pending: map[uint32]trace.Span{}}
}

// SetMetrics attaches m as the destination for call-error and
// dispatch-latency recordings. A nil m (the zero value) is safe and
// simply disables recording, matching the package's nil-safe convention.
func (m *Mux) SetMetrics(met *metrics.Metrics) {
	m.metrics = met
}

// AllocateToken returns the next caller token: a 32-bit counter starting
// at 1, wrapping from its maximum back to 1, skipping any value already
// live in the caller table.
func (m *Mux) AllocateToken() uint32 {
	for {
		m.next++
		if m.next == 0 {
			m.next = 1
		}
		if _, live := m.callers[m.next]; !live {
			return m.next
		}
	}
}

// RegisterCaller inserts the (token -> caller) mapping, typically done once
// a caller completes session-open.
func (m *Mux) RegisterCaller(token uint32, conn Sender) {
	m.callers[token] = conn
}

// RemoveCaller deletes a caller's table entry, done on disconnect. Any
// span still open for a forwarded call under this token is closed rather
// than left pending forever.
func (m *Mux) RemoveCaller(token uint32) {
	delete(m.callers, token)
	if span, ok := m.pending[token]; ok {
		span.End()
		delete(m.pending, token)
	}
}

// DispatchClientCall handles one CLICALL frame from caller, whose
// correlation token is callerToken. meta carries the dotted method path;
// payload is the (possibly empty) marshalled argument object. ctx carries
// the (optional) tracing span for the round trip.
func (m *Mux) DispatchClientCall(ctx context.Context, caller Sender, callerToken uint32, meta string, payload []byte) error {
	const op = "mux.DispatchClientCall"

	if meta == "" {
		// Missing meta has no representation among the wire protocol's
		// four error codes; treated as a per-frame error (spec §7),
		// closing the connection rather than synthesising a CLIREPLY.
		return bbuserr.New(bbuserr.MsgInvFmt, op)
	}

	rec, ok := m.tree.Locate(meta)
	if !ok {
		// A locally-resolved reply (no method, or a local method's own
		// result) carries token=0: the original bbusd builds this header
		// with memset(&hdr, 0, ...) and only calls bbus_hdr_settoken in
		// the remote-dispatch branch below (bin/bbusd.c:331,371).
		m.metrics.RecordCallError(bbuserr.NoMethod.String())
		return caller.SendFrame(replyHeader(0, wire.ENoMethod), "", nil)
	}

	arg := object.FromBuffer(payload)

	switch rec.Kind {
	case servicetree.Local:
		_, span := telemetry.StartCallSpan(ctx, telemetry.SpanClientCall, meta, callerToken)
		start := time.Now()
		result, err := rec.Local(arg)
		m.metrics.ObserveDispatchLatency(time.Since(start).Seconds())
		if err != nil || result == nil {
			span.SetStatus(codes.Error, "local method invocation failed")
			span.End()
			m.log.Warn("local method invocation failed", logger.MethodPath(meta), logger.Err(err))
			m.metrics.RecordCallError(bbuserr.MethodErr.String())
			return caller.SendFrame(replyHeader(0, wire.EMethodErr), "", nil)
		}
		span.End()
		h := replyHeader(0, wire.EGood)
		h.SetFlag(wire.FlagHasObject)
		return caller.SendFrame(h, "", result.Bytes())

	case servicetree.Remote:
		owner, ok := rec.Owner.(Sender)
		if !ok {
			return bbuserr.New(bbuserr.LogicErr, op)
		}
		_, span := telemetry.StartCallSpan(ctx, telemetry.SpanServerCall, meta, callerToken)
		m.pending[callerToken] = span
		h := wire.NewHeader(wire.SRVCALL, wire.EGood)
		h.SetToken(callerToken)
		h.SetFlag(wire.FlagHasMeta)
		h.SetFlag(wire.FlagHasObject)
		return owner.SendFrame(h, terminalSegment(meta), arg.Bytes())

	default:
		return bbuserr.New(bbuserr.LogicErr, op)
	}
}

// HandleServiceReply routes a provider's SRVREPLY back to the caller
// identified by token. A caller that has since disconnected is not an
// error: the reply is dropped with a logged warning.
func (m *Mux) HandleServiceReply(token uint32, payload []byte) error {
	if span, ok := m.pending[token]; ok {
		span.End()
		delete(m.pending, token)
	}

	caller, ok := m.callers[token]
	if !ok {
		m.log.Warn("srvreply for unknown or departed caller", logger.Token(token))
		return nil
	}
	h := replyHeader(token, wire.EGood)
	h.SetFlag(wire.FlagHasObject)
	return caller.SendFrame(h, "", payload)
}

func replyHeader(token uint32, errCode wire.ErrCode) wire.Header {
	h := wire.NewHeader(wire.CLIREPLY, errCode)
	h.SetToken(token)
	return h
}

// terminalSegment returns the last dot-separated segment of path.
func terminalSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
