// Package daemon implements the single-threaded, cooperative event loop
// that owns every connection: it demultiplexes I/O readiness, reads and
// writes whole framed messages, and enforces the per-role state machine
// described in spec §4.5-4.6.
package daemon

import (
	"container/list"
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/marmos91/busybus/internal/bbuserr"
	"github.com/marmos91/busybus/internal/logger"
	"github.com/marmos91/busybus/internal/metrics"
	"github.com/marmos91/busybus/internal/mux"
	"github.com/marmos91/busybus/internal/servicetree"
	"github.com/marmos91/busybus/internal/transport"
	"github.com/marmos91/busybus/internal/wire"
)

// pollTickMs is the readiness-wait timeout, used purely for shutdown
// responsiveness — no timed work happens on its own account (spec §4.6).
const pollTickMs = 500

// AuthHook is the accept-time authorisation hook: given the peer's
// credentials, requested role and supplied name, it returns false to
// reject the session-open. A nil hook admits every connection. This is
// the only access-control surface the core provides (spec §1 non-goals).
type AuthHook func(creds transport.Credentials, role Role, name string) bool

// Daemon owns the listener, every connection, the service tree, and the
// call multiplexer. Not safe for concurrent use outside of Run's own
// goroutine — every mutation happens between readiness-waits.
type Daemon struct {
	sockPath string
	listener *transport.Listener

	tree *servicetree.Tree
	mux  *mux.Mux

	conns    *list.List // of *Connection, all connections
	monitors *list.List // of *Connection, subset with role == RoleMonitor
	byFD     map[int]*Connection

	nextConnID uint64
	runFlag    atomic.Bool

	Auth    AuthHook
	Metrics *metrics.Metrics // nil-safe; unset means metrics are not recorded
	log     *slog.Logger
}

// New constructs a daemon bound to sockPath; the socket isn't created
// until Run is called.
func New(sockPath string, log *slog.Logger) *Daemon {
	if log == nil {
		log = slog.Default()
	}
	tree := servicetree.New()
	d := &Daemon{
		sockPath: sockPath,
		tree:     tree,
		mux:      mux.New(tree, log),
		conns:    list.New(),
		monitors: list.New(),
		byFD:     map[int]*Connection{},
		log:      log,
	}
	return d
}

// SetMetrics attaches m as the daemon's metrics sink and propagates it to
// the multiplexer, so that call-error and dispatch-latency recordings made
// deep inside DispatchClientCall reach the same registry as the
// connection/method counters recorded here in daemon.go.
func (d *Daemon) SetMetrics(m *metrics.Metrics) {
	d.Metrics = m
	d.mux.SetMetrics(m)
}

// Run binds the listener, installs built-in methods, and runs the event
// loop until ctx is cancelled. It always returns with the listener closed
// and unlinked.
func (d *Daemon) Run(ctx context.Context) error {
	const op = "daemon.Run"

	ln, err := transport.Bind(d.sockPath)
	if err != nil {
		return err
	}
	d.listener = ln
	defer d.shutdown()

	if err := d.installBuiltins(); err != nil {
		return bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}

	d.runFlag.Store(true)
	go func() {
		<-ctx.Done()
		d.runFlag.Store(false)
	}()

	d.log.Info("busybus daemon starting", logger.SockPath(d.sockPath))

	for d.runFlag.Load() {
		if err := d.tick(); err != nil {
			if bbuserr.Is(err, bbuserr.PollIntr) {
				continue
			}
			return err
		}
	}
	return nil
}

// tick runs one iteration of the event loop: rebuild the readiness set,
// wait up to pollTickMs, then accept or dispatch on whatever is ready.
func (d *Daemon) tick() error {
	lnFD, err := d.listener.FD()
	if err != nil {
		return err
	}

	fds := make([]int, 0, 1+len(d.byFD))
	fds = append(fds, lnFD)
	for fd := range d.byFD {
		fds = append(fds, fd)
	}

	events, err := transport.Wait(fds, pollTickMs)
	if err != nil {
		return err
	}

	for _, ev := range events {
		switch {
		case ev.FD == lnFD:
			d.acceptOne()
		default:
			conn, ok := d.byFD[ev.FD]
			if !ok {
				continue
			}
			if ev.Error {
				d.closeConnection(conn)
				continue
			}
			d.handleReadable(conn)
		}
	}
	return nil
}

func (d *Daemon) acceptOne() {
	sock, err := d.listener.Accept()
	if err != nil {
		d.log.Error("accept failed", logger.Err(err))
		return
	}
	d.nextConnID++
	conn := &Connection{id: d.nextConnID, sock: sock, creds: sock.Credentials()}
	conn.elem = d.conns.PushBack(conn)
	fd, err := conn.FD()
	if err != nil {
		d.log.Error("could not obtain fd for accepted connection", logger.Err(err))
		d.closeConnection(conn)
		return
	}
	d.byFD[fd] = conn
	d.log.Debug("connection accepted", logger.ConnID(conn.id),
		logger.UID(conn.creds.UID), logger.GID(conn.creds.GID), logger.PID(conn.creds.PID))
}

// handleReadable reads exactly one frame from conn and routes it. Any
// per-frame error (bad magic, truncated payload, message type not allowed
// for the connection's role) closes the connection (spec §7).
func (d *Daemon) handleReadable(conn *Connection) {
	frame, err := conn.ReadFrame()
	if err != nil {
		if !bbuserr.Is(err, bbuserr.ConnClosed) {
			d.log.Error("frame read failed, closing connection", logger.ConnID(conn.id), logger.Err(err))
		}
		d.closeConnection(conn)
		return
	}

	if conn.role == RoleNone {
		d.handleSessionOpen(conn, frame)
		return
	}

	if frame.Header.Type == wire.CLOSE {
		d.closeConnection(conn)
		return
	}

	if !isAllowed(conn.role, frame.Header.Type) {
		d.log.Error("message type not allowed for role, closing connection",
			logger.ConnID(conn.id), logger.Role(conn.role.String()), logger.MsgType(frame.Header.Type.String()))
		d.closeConnection(conn)
		return
	}

	if err := d.dispatch(conn, frame); err != nil {
		d.log.Error("dispatch failed, closing connection", logger.ConnID(conn.id), logger.Err(err))
		d.closeConnection(conn)
	}
}

// handleSessionOpen admits conn's first frame, which must be a session-open
// naming one of the four roles. Success replies SOOK and records the role;
// failure (bad subtype, auth hook rejection) replies SORJCT and closes.
func (d *Daemon) handleSessionOpen(conn *Connection, frame wire.Frame) {
	if frame.Header.Type != wire.SO {
		d.rejectSession(conn)
		return
	}

	role, ok := roleForSoType(frame.Header.SoType)
	if !ok {
		d.rejectSession(conn)
		return
	}

	name := frame.Meta
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	if d.Auth != nil && !d.Auth(conn.creds, role, name) {
		d.rejectSession(conn)
		return
	}

	conn.role = role
	conn.name = name

	if role == RoleCaller {
		conn.token = d.mux.AllocateToken()
		d.mux.RegisterCaller(conn.token, conn)
	}
	if role == RoleMonitor {
		conn.monElem = d.monitors.PushBack(conn)
	}

	h := wire.NewHeader(wire.SOOK, wire.EGood)
	h.SetToken(conn.token)
	if err := conn.SendFrame(h, "", nil); err != nil {
		d.closeConnection(conn)
		return
	}
	d.Metrics.RecordConnectionAccepted(role.String())
	d.log.Info("session opened", logger.ConnID(conn.id), logger.Role(role.String()))
}

func (d *Daemon) rejectSession(conn *Connection) {
	h := wire.NewHeader(wire.SORJCT, wire.EGood)
	_ = conn.SendFrame(h, "", nil)
	d.closeConnection(conn)
}

// dispatch routes one post-session-open frame according to (role, type).
func (d *Daemon) dispatch(conn *Connection, frame wire.Frame) error {
	switch frame.Header.Type {
	case wire.CLICALL:
		d.Metrics.RecordCall(frame.Header.Type.String())
		return d.mux.DispatchClientCall(context.Background(), conn, conn.token, frame.Meta, frame.Object)
	case wire.SRVREG:
		return d.handleServiceRegister(conn, frame)
	case wire.SRVUNREG:
		// Unregistration semantics were never implemented in the
		// original daemon (unregister_service is a no-op there
		// too); the request is acknowledged with SRVACK/EGood and
		// logged, but nothing is removed from the service tree.
		d.log.Info("service unregister acknowledged, nothing removed", logger.ConnID(conn.id), "meta", frame.Meta)
		return conn.SendFrame(wire.NewHeader(wire.SRVACK, wire.EGood), "", nil)
	case wire.SRVREPLY:
		return d.mux.HandleServiceReply(frame.Header.Token(), frame.Object)
	case wire.CTRL:
		// Control-message grammar was never specified by the
		// original implementation (handle_control_message is a
		// no-op); accepted and ignored.
		return nil
	default:
		return bbuserr.New(bbuserr.MsgInvType, "daemon.dispatch")
	}
}

// handleServiceRegister parses SRVREG's meta ("<path>,<argdesc>,<retdesc>"),
// prepends the bbus. root, and inserts a remote method record owned by
// conn. Replies SRVACK with EGood or EMRegErr.
func (d *Daemon) handleServiceRegister(conn *Connection, frame wire.Frame) error {
	path, ok := splitRegMeta(frame.Meta)
	errCode := wire.EGood
	if !ok {
		errCode = wire.EMRegErr
	} else if err := d.tree.Insert("bbus."+path, &servicetree.Record{Kind: servicetree.Remote, Owner: conn}); err != nil {
		errCode = wire.EMRegErr
	} else {
		d.Metrics.SetMethodsRegistered(d.tree.Count())
		d.log.Info("method registered", logger.ConnID(conn.id), logger.MethodPath("bbus."+path))
	}

	h := wire.NewHeader(wire.SRVACK, errCode)
	return conn.SendFrame(h, "", nil)
}

// splitRegMeta extracts the service path (up to the first comma) from a
// SRVREG meta string. The argument/return descriptors after the comma are
// documentation only; the core does not enforce them against call payloads.
func splitRegMeta(meta string) (string, bool) {
	i := strings.IndexByte(meta, ',')
	if i <= 0 {
		return "", false
	}
	return meta[:i], true
}

// closeConnection tears down conn: removes it from the caller table (if a
// caller), removes any remote method records it owns (if a service),
// removes it from the connection/monitor lists, and closes its socket.
func (d *Daemon) closeConnection(conn *Connection) {
	if conn.role == RoleCaller {
		d.mux.RemoveCaller(conn.token)
	}
	if conn.role == RoleService {
		d.tree.RemoveProvider(conn)
		d.Metrics.SetMethodsRegistered(d.tree.Count())
	}
	if conn.monElem != nil {
		d.monitors.Remove(conn.monElem)
	}
	if conn.elem != nil {
		d.conns.Remove(conn.elem)
	}
	if fd, err := conn.FD(); err == nil {
		delete(d.byFD, fd)
	}
	_ = conn.Close()
	if conn.role != RoleNone {
		d.Metrics.RecordConnectionClosed(conn.role.String())
	}
	d.log.Debug("connection closed", logger.ConnID(conn.id), logger.Role(conn.role.String()))
}

func (d *Daemon) shutdown() {
	for e := d.conns.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*Connection).Close()
	}
	if d.listener != nil {
		_ = d.listener.Close()
	}
	d.log.Info("busybus daemon stopped")
}
