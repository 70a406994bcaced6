// Package transport implements the local stream transport: Unix domain
// socket bind/listen/accept/connect, vectored send, single-buffer recv, peer credential
// capture, and poll(2)-based readiness waiting.
//
// Grounded on the original implementation's lib/socket.c, translated from
// raw syscalls to golang.org/x/sys/unix plus the standard net package's
// *net.UnixConn/*net.UnixListener for the parts Go already does well.
package transport

import (
	"errors"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// MaxPathLen is the largest socket path accepted, matching spec §6.
const MaxPathLen = 256

// Credentials are the peer credentials captured at accept time via
// SO_PEERCRED.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// Listener is a bound, listening Unix domain socket.
type Listener struct {
	path string
	ln   *net.UnixListener
}

// Bind unlinks any stale socket at path (ignoring "not found"), creates a
// stream socket, binds it, and starts listening.
func Bind(path string) (*Listener, error) {
	const op = "transport.Bind"
	if len(path) > MaxPathLen {
		return nil, bbuserr.New(bbuserr.InvalArg, op)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, bbuserr.Wrap(bbuserr.InvalArg, op, err)
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, bbuserr.Wrap(bbuserr.InvalArg, op, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	return &Listener{path: path, ln: ln}, nil
}

// Path returns the filesystem path the listener is bound to.
func (l *Listener) Path() string { return l.path }

// FD returns the listener's raw file descriptor, for inclusion in a
// readiness-wait poll set.
func (l *Listener) FD() (int, error) {
	return rawFD(l.ln)
}

// Accept accepts one pending connection, capturing the peer's credentials.
func (l *Listener) Accept() (*Conn, error) {
	const op = "transport.Accept"
	c, err := l.ln.AcceptUnix()
	if err != nil {
		return nil, bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	creds, err := peerCredentials(c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Conn{conn: c, creds: creds}, nil
}

// Close closes the listening socket and unlinks its path.
func (l *Listener) Close() error {
	const op = "transport.Close"
	err := l.ln.Close()
	_ = os.Remove(l.path)
	if err != nil {
		return bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	return nil
}

// Conn is one accepted or dialed connection.
type Conn struct {
	conn  *net.UnixConn
	creds Credentials
}

// Connect dials path as a client, for use by the daemon's own internal
// callers (e.g. a control connection) and by tests.
func Connect(path string) (*Conn, error) {
	const op = "transport.Connect"
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, bbuserr.Wrap(bbuserr.InvalArg, op, err)
	}
	c, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, bbuserr.Wrap(bbuserr.ConnClosed, op, err)
	}
	return &Conn{conn: c}, nil
}

// Credentials returns the peer credentials captured at accept time. Zero
// value for client-dialed connections.
func (c *Conn) Credentials() Credentials { return c.creds }

// FD returns the connection's raw file descriptor, for inclusion in a
// readiness-wait poll set.
func (c *Conn) FD() (int, error) { return rawFD(c.conn) }

// Send performs a vectored write of the given buffers, mirroring
// __bbus_sock_sendv's writev semantics: a single syscall across all
// buffers. Returns the total number of bytes written.
func (c *Conn) Send(bufs [][]byte) (int, error) {
	const op = "transport.Send"
	nb := net.Buffers(bufs)
	n, err := nb.WriteTo(c.conn)
	if err != nil {
		return int(n), bbuserr.Wrap(bbuserr.SentLess, op, err)
	}
	return int(n), nil
}

// Recv reads up to len(buf) bytes, mirroring __bbus_sock_recv.
func (c *Conn) Recv(buf []byte) (int, error) {
	const op = "transport.Recv"
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return n, bbuserr.Wrap(bbuserr.ConnClosed, op, err)
		}
		return n, bbuserr.Wrap(bbuserr.RcvdLess, op, err)
	}
	return n, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	const op = "transport.Close"
	if err := c.conn.Close(); err != nil {
		return bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	return nil
}

// Read and Write satisfy io.ReadWriter so that internal/wire's frame
// codec, which is transport-agnostic, can operate directly on a Conn.
// They bypass Recv/Send's bbuserr translation; callers reading or writing
// whole frames should prefer wire.ReadFrame/wire.WriteFrame and let those
// report transport errors in bbuserr terms.
func (c *Conn) Read(p []byte) (int, error)  { return c.conn.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.conn.Write(p) }

// rawFD extracts the raw file descriptor from a net.Conn-like value via
// its SyscallConn, without taking ownership of it (the descriptor remains
// managed by the *net.UnixConn/*net.UnixListener).
func rawFD(sc interface {
	SyscallConn() (syscall.RawConn, error)
}) (int, error) {
	const op = "transport.rawFD"
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	var fd int
	cerr := raw.Control(func(f uintptr) { fd = int(f) })
	if cerr != nil {
		return -1, bbuserr.Wrap(bbuserr.LogicErr, op, cerr)
	}
	return fd, nil
}

// peerCredentials captures SO_PEERCRED for an accepted connection.
func peerCredentials(c *net.UnixConn) (Credentials, error) {
	const op = "transport.peerCredentials"
	fd, err := rawFD(c)
	if err != nil {
		return Credentials{}, err
	}
	var ucred *unix.Ucred
	raw, err := c.SyscallConn()
	if err != nil {
		return Credentials{}, bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	var cerr error
	ctrlErr := raw.Control(func(uintptr) {
		ucred, cerr = unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return Credentials{}, bbuserr.Wrap(bbuserr.LogicErr, op, ctrlErr)
	}
	if cerr != nil {
		return Credentials{}, bbuserr.Wrap(bbuserr.LogicErr, op, cerr)
	}
	return Credentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, nil
}
