package object

import (
	"reflect"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// Build constructs an object by walking description and inserting each
// value in order. Scalar descriptors (i/u/b/s) consume one value each; an
// array descriptor consumes one slice value, inserting its length followed
// by each element against the array's element descriptor; a group
// descriptor ('(' ... ')') consumes one []any value whose entries are
// matched positionally against the group's children.
func Build(description string, values ...any) (o *Object, err error) {
	const op = "object.Build"
	root, perr := parseDescription(description)
	if perr != nil {
		return nil, perr
	}

	defer func() {
		if r := recover(); r != nil {
			o = nil
			err = bbuserr.New(bbuserr.ObjInvFmt, op)
		}
	}()

	result := New()
	idx := 0
	for _, child := range root.children {
		if idx >= len(values) {
			return nil, bbuserr.New(bbuserr.ObjInvFmt, op)
		}
		if err := insertNode(result, child, values[idx]); err != nil {
			return nil, err
		}
		idx++
	}
	return result, nil
}

func insertNode(o *Object, n *node, val any) error {
	switch n.kind {
	case kindInt32:
		v, ok := coerceInt32(val)
		if !ok {
			return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
		}
		return o.InsertInt32(v)
	case kindUint32:
		v, ok := coerceUint32(val)
		if !ok {
			return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
		}
		return o.InsertUint32(v)
	case kindByte:
		v, ok := val.(byte)
		if !ok {
			return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
		}
		return o.InsertByte(v)
	case kindString:
		v, ok := val.(string)
		if !ok {
			return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
		}
		return o.InsertString(v)
	case kindArray:
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
		}
		count := rv.Len()
		if err := o.InsertArrayHeader(uint32(count)); err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if err := insertNode(o, n.elem, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case kindGroup:
		members, ok := val.([]any)
		if !ok || len(members) != len(n.children) {
			return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
		}
		for i, child := range n.children {
			if err := insertNode(o, child, members[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return bbuserr.New(bbuserr.ObjInvFmt, "object.insertNode")
	}
}

// Parse reads values out of obj in order against description, storing each
// into the corresponding out pointer. On failure the object's extraction
// cursor is restored to where it stood on entry. Scalar descriptors expect
// *int32/*uint32/*byte/*string; array and group descriptors expect *[]any.
func Parse(o *Object, description string, out ...any) (err error) {
	const op = "object.Parse"
	root, perr := parseDescription(description)
	if perr != nil {
		return perr
	}

	start := o.cursor
	defer func() {
		if r := recover(); r != nil {
			o.cursor = start
			err = bbuserr.New(bbuserr.ObjInvFmt, op)
		}
		if err != nil {
			o.cursor = start
		}
	}()

	if len(out) != len(root.children) {
		return bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	for i, child := range root.children {
		v, derr := decodeNode(o, child)
		if derr != nil {
			return derr
		}
		assign(out[i], v)
	}
	return nil
}

func decodeNode(o *Object, n *node) (any, error) {
	switch n.kind {
	case kindInt32:
		return o.ExtractInt32()
	case kindUint32:
		return o.ExtractUint32()
	case kindByte:
		return o.ExtractByte()
	case kindString:
		return o.ExtractString()
	case kindArray:
		count, err := o.ExtractArrayHeader()
		if err != nil {
			return nil, err
		}
		elems := make([]any, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := decodeNode(o, n.elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return elems, nil
	case kindGroup:
		members := make([]any, 0, len(n.children))
		for _, child := range n.children {
			v, err := decodeNode(o, child)
			if err != nil {
				return nil, err
			}
			members = append(members, v)
		}
		return members, nil
	default:
		return nil, bbuserr.New(bbuserr.ObjInvFmt, "object.decodeNode")
	}
}

// assign stores v into the pointer out, matching the concrete pointer type
// to v's dynamic type exactly. Panics on mismatch are recovered by Parse's
// caller and turned into ObjInvFmt.
func assign(out any, v any) {
	reflect.ValueOf(out).Elem().Set(reflect.ValueOf(v))
}

func coerceInt32(val any) (int32, bool) {
	v, ok := val.(int32)
	return v, ok
}

func coerceUint32(val any) (uint32, bool) {
	v, ok := val.(uint32)
	return v, ok
}
