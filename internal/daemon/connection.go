package daemon

import (
	"container/list"

	"github.com/marmos91/busybus/internal/transport"
	"github.com/marmos91/busybus/internal/wire"
)

// maxNameLen bounds a connection's identifying name (spec §3).
const maxNameLen = 32

// Connection is the ownership record for one accepted socket: role, name,
// credentials, caller token, and its position in the daemon's connection
// lists. It implements mux.Sender.
type Connection struct {
	id    uint64
	sock  *transport.Conn
	role  Role
	name  string
	token uint32 // meaningful only when role == RoleCaller
	creds transport.Credentials

	elem    *list.Element // position in Daemon.conns
	monElem *list.Element // position in Daemon.monitors, nil unless role == RoleMonitor
}

// SendFrame writes one frame to the connection, setting HAS_META/HAS_OBJECT
// to match what's actually being sent so callers need not set them by hand.
func (c *Connection) SendFrame(h wire.Header, meta string, obj []byte) error {
	if meta != "" {
		h.SetFlag(wire.FlagHasMeta)
	}
	if obj != nil {
		h.SetFlag(wire.FlagHasObject)
	}
	return wire.WriteFrame(c.sock, h, meta, obj)
}

// ReadFrame reads the next complete frame from the connection.
func (c *Connection) ReadFrame() (wire.Frame, error) {
	return wire.ReadFrame(c.sock)
}

// FD returns the connection's raw file descriptor for the readiness set.
func (c *Connection) FD() (int, error) { return c.sock.FD() }

// Close closes the underlying socket. Removing the connection from the
// daemon's bookkeeping (lists, caller table, service tree) is the
// responsibility of the caller (Daemon.closeConnection).
func (c *Connection) Close() error { return c.sock.Close() }
