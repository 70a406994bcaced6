// Package object implements the marshalled object codec: a self-describing,
// length-determined byte stream produced against a description string over
// the alphabet i/u/b/s/A/(/).
package object

import (
	"encoding/binary"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// maxObjectSize bounds a single object's raw buffer; large enough for any
// object that fits inside one frame's maximum payload.
const maxObjectSize = 4096

// Object is an append-only byte buffer plus a cursor used for extraction.
// The zero value is an empty, ready-to-use object.
type Object struct {
	buf    []byte
	cursor int
}

// New returns an empty object ready for insertion.
func New() *Object { return &Object{} }

// FromBuffer wraps raw bytes as an object whose raw size is len(b). No
// validation against a description is performed; extraction proceeds
// directly against the supplied bytes.
func FromBuffer(b []byte) *Object {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Object{buf: cp}
}

// Bytes returns the object's raw backing buffer.
func (o *Object) Bytes() []byte { return o.buf }

// RawSize returns the number of bytes in the object's buffer.
func (o *Object) RawSize() int { return len(o.buf) }

// Rewind resets the extraction cursor to the start of the buffer.
func (o *Object) Rewind() { o.cursor = 0 }

func (o *Object) checkSpace(n int) error {
	if len(o.buf)+n > maxObjectSize {
		return bbuserr.New(bbuserr.NoSpace, "object.insert")
	}
	return nil
}

// InsertInt32 appends a 32-bit signed integer in network byte order.
func (o *Object) InsertInt32(v int32) error { return o.InsertUint32(uint32(v)) }

// InsertUint32 appends a 32-bit unsigned integer in network byte order.
func (o *Object) InsertUint32(v uint32) error {
	if err := o.checkSpace(4); err != nil {
		return err
	}
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	o.buf = append(o.buf, tmp[:]...)
	return nil
}

// InsertByte appends a single byte.
func (o *Object) InsertByte(v byte) error {
	if err := o.checkSpace(1); err != nil {
		return err
	}
	o.buf = append(o.buf, v)
	return nil
}

// InsertBytes appends a raw byte array with no length prefix or terminator
// (the caller's description is responsible for determining its extent,
// typically via a preceding array header).
func (o *Object) InsertBytes(v []byte) error {
	if err := o.checkSpace(len(v)); err != nil {
		return err
	}
	o.buf = append(o.buf, v...)
	return nil
}

// InsertString appends a NUL-terminated string. An empty string is encoded
// as a single NUL byte.
func (o *Object) InsertString(s string) error {
	if err := o.checkSpace(len(s) + 1); err != nil {
		return err
	}
	o.buf = append(o.buf, s...)
	o.buf = append(o.buf, 0)
	return nil
}

// InsertArrayHeader appends a 32-bit element count preceding an array's
// elements. A zero-length array carries a zero count and no elements.
func (o *Object) InsertArrayHeader(count uint32) error { return o.InsertUint32(count) }

func (o *Object) remaining() []byte { return o.buf[o.cursor:] }

// ExtractInt32 reads the next 32-bit signed integer.
func (o *Object) ExtractInt32() (int32, error) {
	v, err := o.ExtractUint32()
	return int32(v), err
}

// ExtractUint32 reads the next 32-bit unsigned integer.
func (o *Object) ExtractUint32() (uint32, error) {
	const op = "object.ExtractUint32"
	if len(o.remaining()) < 4 {
		return 0, bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	v := binary.BigEndian.Uint32(o.remaining()[:4])
	o.cursor += 4
	return v, nil
}

// ExtractByte reads the next single byte.
func (o *Object) ExtractByte() (byte, error) {
	const op = "object.ExtractByte"
	if len(o.remaining()) < 1 {
		return 0, bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	v := o.remaining()[0]
	o.cursor++
	return v, nil
}

// ExtractBytes reads the next n raw bytes.
func (o *Object) ExtractBytes(n int) ([]byte, error) {
	const op = "object.ExtractBytes"
	if len(o.remaining()) < n {
		return nil, bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	v := make([]byte, n)
	copy(v, o.remaining()[:n])
	o.cursor += n
	return v, nil
}

// ExtractString reads the next NUL-terminated string.
func (o *Object) ExtractString() (string, error) {
	const op = "object.ExtractString"
	rest := o.remaining()
	nul := -1
	for i, b := range rest {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul < 0 {
		return "", bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	s := string(rest[:nul])
	o.cursor += nul + 1
	return s, nil
}

// ExtractArrayHeader reads the next 32-bit element count.
func (o *Object) ExtractArrayHeader() (uint32, error) { return o.ExtractUint32() }
