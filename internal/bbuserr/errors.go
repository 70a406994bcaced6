// Package bbuserr implements the daemon's unified error taxonomy: a single
// discriminated error kind shared by the wire codec, the object codec, the
// service tree, the multiplexer, and the transport layer.
package bbuserr

import (
	"errors"
	"fmt"
)

// Kind discriminates the condition that produced an Error. Values below
// KindErrnoThreshold pass through to the wrapped OS error's own message;
// values at or above it carry a fixed string instead.
type Kind int

const (
	Success Kind = iota
	NoMem
	InvalArg
	ObjInvFmt
	NoSpace
	ConnClosed
	MsgInvFmt
	MsgMagic
	MsgInvType
	SoRjctd
	SentLess
	RcvdLess
	LogicErr
	NoMethod
	MethodErr
	PollIntr
	MRegErr
	HmapInvType
	RegexPtrn
	CliUnauth

	// KindErrnoThreshold marks the boundary: kinds below it may carry a
	// wrapped errno-derived error whose message is preferred; kinds at or
	// above it always use their fixed string.
	KindErrnoThreshold = ConnClosed
)

var kindStrings = map[Kind]string{
	Success:     "success",
	NoMem:       "out of memory",
	InvalArg:    "invalid argument",
	ObjInvFmt:   "invalid object format",
	NoSpace:     "insufficient buffer space",
	ConnClosed:  "connection closed",
	MsgInvFmt:   "invalid message format",
	MsgMagic:    "bad magic number",
	MsgInvType:  "invalid message type for connection role",
	SoRjctd:     "session-open rejected",
	SentLess:    "short write",
	RcvdLess:    "short read",
	LogicErr:    "internal logic error",
	NoMethod:    "no such method",
	MethodErr:   "method invocation failed",
	PollIntr:    "readiness wait interrupted",
	MRegErr:     "method registration error",
	HmapInvType: "invalid handle-map entry type",
	RegexPtrn:   "invalid pattern",
	CliUnauth:   "client unauthorized",
}

func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("bbuserr.Kind(%d)", int(k))
}

// Error is the concrete error type returned throughout the daemon. It
// always carries a Kind and an operation label, and may wrap an underlying
// cause (often an OS error) of any kind. Error() shows the cause's message
// only for kinds below KindErrnoThreshold; other kinds show their fixed
// string, with the cause still reachable through Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind < KindErrnoThreshold {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error for op with no wrapped cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap constructs an Error for op wrapping the given cause. If err is nil
// it returns nil, matching the fmt.Errorf("...: %w") idiom.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// As retrieves the Kind of err if it is (or wraps) a *Error.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Success, false
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := As(err)
	return ok && k == kind
}

// ProtoCode maps a Kind to the wire protocol error code it corresponds to,
// per spec §6's four-value taxonomy (EGood/ENoMethod/EMethodErr/EMRegErr).
// Kinds with no protocol-level representation map to EGood, since they are
// always handled by closing the connection rather than replying.
func ProtoCode(kind Kind) uint8 {
	switch kind {
	case NoMethod:
		return 1
	case MethodErr:
		return 2
	case MRegErr:
		return 3
	default:
		return 0
	}
}
