// Package wire implements the framed binary protocol spoken on every
// busybus connection: a fixed 12-byte header followed by an optional
// NUL-terminated meta string and an optional marshalled object payload.
package wire

import (
	"encoding/binary"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// MsgType enumerates the wire message types (spec §6).
type MsgType byte

const (
	SO       MsgType = 0x01
	SOOK     MsgType = 0x02
	SORJCT   MsgType = 0x03
	SRVREG   MsgType = 0x04
	SRVUNREG MsgType = 0x05
	SRVACK   MsgType = 0x06
	CLICALL  MsgType = 0x07
	CLIREPLY MsgType = 0x08
	CLISIG   MsgType = 0x09
	SRVCALL  MsgType = 0x0A
	SRVREPLY MsgType = 0x0B
	SRVSIG   MsgType = 0x0C
	CLOSE    MsgType = 0x0D
	CTRL     MsgType = 0x0E
	MON      MsgType = 0x0F
)

var msgTypeNames = map[MsgType]string{
	SO: "SO", SOOK: "SOOK", SORJCT: "SORJCT", SRVREG: "SRVREG",
	SRVUNREG: "SRVUNREG", SRVACK: "SRVACK", CLICALL: "CLICALL",
	CLIREPLY: "CLIREPLY", CLISIG: "CLISIG", SRVCALL: "SRVCALL",
	SRVREPLY: "SRVREPLY", SRVSIG: "SRVSIG", CLOSE: "CLOSE",
	CTRL: "CTRL", MON: "MON",
}

func (t MsgType) String() string {
	if s, ok := msgTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// SoType enumerates the session-open subtypes (spec §6). Meaningful only
// on SO frames.
type SoType byte

const (
	SoNone    SoType = 0
	SoCaller  SoType = 1
	SoService SoType = 2
	SoMonitor SoType = 3
	SoControl SoType = 4
)

// ErrCode enumerates the protocol-level error codes carried in reply
// frames (spec §6).
type ErrCode byte

const (
	EGood      ErrCode = 0
	ENoMethod  ErrCode = 1
	EMethodErr ErrCode = 2
	EMRegErr   ErrCode = 3
)

// Flag bits within the header's flags byte.
const (
	FlagHasMeta   byte = 0x01
	FlagHasObject byte = 0x02
)

const (
	magic0 = 0xBB
	magic1 = 0xC5

	// HeaderSize is the on-wire size of a frame header in bytes.
	HeaderSize = 12

	// MaxPayloadSize is the protocol's largest payload (meta + object).
	// SetPayloadSize does not clamp to it (it saturates only at the 16-bit
	// field's maximum), and ReadFrame and WriteFrame do not enforce it.
	MaxPayloadSize = 4096

	// MaxMessageSize is the largest complete frame, header included.
	MaxMessageSize = HeaderSize + MaxPayloadSize
)

// Header is the fixed 12-byte frame header, held in decoded (host-native)
// form. The seven logical fields are serialised contiguously and in
// network byte order regardless of host struct layout.
type Header struct {
	Type        MsgType
	SoType      SoType
	ErrCode     ErrCode
	token       uint32
	payloadSize uint16
	Flags       byte
}

// NewHeader fills magic, message-type and error-code, zeroing every other
// field — mirrors the original write_header operation.
func NewHeader(t MsgType, errCode ErrCode) Header {
	return Header{Type: t, ErrCode: errCode}
}

// Token returns the caller-allocated correlation token.
func (h *Header) Token() uint32 { return h.token }

// SetToken sets the caller-allocated correlation token.
func (h *Header) SetToken(tok uint32) { h.token = tok }

// PayloadSize returns the declared payload length.
func (h *Header) PayloadSize() uint16 { return h.payloadSize }

// SetPayloadSize sets the declared payload length, saturating at the
// 16-bit field's maximum (65535) rather than overflowing it.
func (h *Header) SetPayloadSize(n int) {
	if n > 0xFFFF {
		n = 0xFFFF
	}
	if n < 0 {
		n = 0
	}
	h.payloadSize = uint16(n)
}

// IsFlagSet reports whether the given bit is set in the flags byte.
func (h *Header) IsFlagSet(flag byte) bool { return h.Flags&flag != 0 }

// SetFlag sets the given bit in the flags byte.
func (h *Header) SetFlag(flag byte) { h.Flags |= flag }

// Encode serialises h into its 12-byte wire form, network byte order.
func Encode(h Header) [HeaderSize]byte {
	var buf [HeaderSize]byte
	buf[0] = magic0
	buf[1] = magic1
	buf[2] = byte(h.Type)
	buf[3] = byte(h.SoType)
	buf[4] = byte(h.ErrCode)
	binary.BigEndian.PutUint32(buf[5:9], h.token)
	binary.BigEndian.PutUint16(buf[9:11], h.payloadSize)
	buf[11] = h.Flags
	return buf
}

// Decode parses a 12-byte buffer into a Header, validating the magic
// number. buf must be exactly HeaderSize bytes.
func Decode(buf []byte) (Header, error) {
	const op = "wire.Decode"
	if len(buf) != HeaderSize {
		return Header{}, bbuserr.New(bbuserr.MsgInvFmt, op)
	}
	if buf[0] != magic0 || buf[1] != magic1 {
		return Header{}, bbuserr.New(bbuserr.MsgMagic, op)
	}
	h := Header{
		Type:    MsgType(buf[2]),
		SoType:  SoType(buf[3]),
		ErrCode: ErrCode(buf[4]),
	}
	h.token = binary.BigEndian.Uint32(buf[5:9])
	h.payloadSize = binary.BigEndian.Uint16(buf[9:11])
	h.Flags = buf[11]
	return h, nil
}
