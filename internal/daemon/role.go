package daemon

import "github.com/marmos91/busybus/internal/wire"

// Role is a connection's fixed classification, assigned at session-open
// and never changed thereafter (spec §3, §4.5).
type Role int

const (
	RoleNone Role = iota
	RoleCaller
	RoleService
	RoleMonitor
	RoleControl
)

func (r Role) String() string {
	switch r {
	case RoleCaller:
		return "caller"
	case RoleService:
		return "service"
	case RoleMonitor:
		return "monitor"
	case RoleControl:
		return "ctl"
	default:
		return "none"
	}
}

// roleForSoType maps a session-open subtype to the role it establishes.
// ok is false for an unrecognised subtype, which the caller should treat
// as a rejected session-open.
func roleForSoType(t wire.SoType) (Role, bool) {
	switch t {
	case wire.SoCaller:
		return RoleCaller, true
	case wire.SoService:
		return RoleService, true
	case wire.SoMonitor:
		return RoleMonitor, true
	case wire.SoControl:
		return RoleControl, true
	default:
		return RoleNone, false
	}
}

// allowedTypes lists the message types a role may send after session-open.
// Anything else — per role, including an unopened connection's first
// non-SO frame — is a per-frame error that closes the connection.
var allowedTypes = map[Role]map[wire.MsgType]bool{
	RoleCaller: {
		wire.CLICALL: true,
		wire.CLOSE:   true,
	},
	RoleService: {
		wire.SRVREG:   true,
		wire.SRVUNREG: true,
		wire.SRVREPLY: true,
		wire.CLOSE:    true,
	},
	RoleControl: {
		wire.CTRL:  true,
		wire.CLOSE: true,
	},
	RoleMonitor: {
		wire.CLOSE: true,
	},
}

func isAllowed(role Role, t wire.MsgType) bool {
	return allowedTypes[role][t]
}
