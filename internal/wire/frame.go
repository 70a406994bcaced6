package wire

import (
	"bytes"
	"errors"
	"io"
	"net"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// Frame is a fully decoded message: header plus the raw meta and object
// slices carved out of the payload according to the header's flags.
type Frame struct {
	Header Header
	Meta   string
	Object []byte
}

// ReadFrame reads exactly one complete frame from r. Fewer bytes than the
// header or declared payload-size promises is a RcvdLess error; a peer
// that closes cleanly before the first header byte surfaces as ConnClosed
// instead.
func ReadFrame(r io.Reader) (Frame, error) {
	const op = "wire.ReadFrame"

	var hdrBuf [HeaderSize]byte
	if err := readFull(r, hdrBuf[:], op); err != nil {
		return Frame{}, err
	}

	hdr, err := Decode(hdrBuf[:])
	if err != nil {
		return Frame{}, err
	}

	payload := make([]byte, hdr.PayloadSize())
	if len(payload) > 0 {
		// The header has already arrived, so any shortfall here,
		// including an immediate EOF, is a mid-frame truncation.
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, bbuserr.Wrap(bbuserr.RcvdLess, op, err)
		}
	}

	frame := Frame{Header: hdr}
	rest := payload
	if hdr.IsFlagSet(FlagHasMeta) {
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return Frame{}, bbuserr.New(bbuserr.MsgInvFmt, op)
		}
		frame.Meta = string(rest[:nul])
		rest = rest[nul+1:]
	}
	if hdr.IsFlagSet(FlagHasObject) {
		frame.Object = rest
	}
	return frame, nil
}

// readFull reads exactly len(buf) bytes, translating io.EOF on the first
// read into ConnClosed (peer closed cleanly between frames) and any
// shorter read into RcvdLess (peer closed mid-frame).
func readFull(r io.Reader, buf []byte, op string) error {
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && n == 0 {
		return bbuserr.Wrap(bbuserr.ConnClosed, op, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return bbuserr.Wrap(bbuserr.RcvdLess, op, err)
	}
	return bbuserr.Wrap(bbuserr.RcvdLess, op, err)
}

// WriteFrame emits a header, optional NUL-terminated meta, and optional
// object bytes as a single vectored write. Short writes are treated as
// fatal to the connection (SentLess) rather than retried.
func WriteFrame(w io.Writer, h Header, meta string, object []byte) error {
	const op = "wire.WriteFrame"

	payloadLen := 0
	var metaBytes []byte
	if meta != "" || h.IsFlagSet(FlagHasMeta) {
		metaBytes = append([]byte(meta), 0)
		payloadLen += len(metaBytes)
		h.SetFlag(FlagHasMeta)
	}
	if object != nil {
		payloadLen += len(object)
		h.SetFlag(FlagHasObject)
	}
	h.SetPayloadSize(payloadLen)

	hdrBuf := Encode(h)
	bufs := net.Buffers{hdrBuf[:]}
	if len(metaBytes) > 0 {
		bufs = append(bufs, metaBytes)
	}
	if len(object) > 0 {
		bufs = append(bufs, object)
	}

	want := int64(HeaderSize + len(metaBytes) + len(object))
	n, err := bufs.WriteTo(w)
	if err != nil {
		return bbuserr.Wrap(bbuserr.SentLess, op, err)
	}
	if n != want {
		return bbuserr.New(bbuserr.SentLess, op)
	}
	return nil
}
