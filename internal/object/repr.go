package object

import (
	"fmt"
	"strings"
)

// Repr produces a best-effort human-readable dump of obj against
// description, for diagnostics.
// It never panics on malformed data; on any decode failure it renders
// "<malformed>" in place of the offending value rather than aborting.
func Repr(o *Object, description string) string {
	root, err := parseDescription(description)
	if err != nil {
		return fmt.Sprintf("<bad description %q>", description)
	}

	cp := &Object{buf: o.buf, cursor: o.cursor}
	var parts []string
	for _, child := range root.children {
		parts = append(parts, reprNode(cp, child))
	}
	return strings.Join(parts, " ")
}

func reprNode(o *Object, n *node) string {
	switch n.kind {
	case kindInt32:
		v, err := o.ExtractInt32()
		if err != nil {
			return "<malformed>"
		}
		return fmt.Sprintf("%d", v)
	case kindUint32:
		v, err := o.ExtractUint32()
		if err != nil {
			return "<malformed>"
		}
		return fmt.Sprintf("%d", v)
	case kindByte:
		v, err := o.ExtractByte()
		if err != nil {
			return "<malformed>"
		}
		return fmt.Sprintf("0x%02x", v)
	case kindString:
		v, err := o.ExtractString()
		if err != nil {
			return "<malformed>"
		}
		return fmt.Sprintf("%q", v)
	case kindArray:
		count, err := o.ExtractArrayHeader()
		if err != nil {
			return "<malformed>"
		}
		elems := make([]string, 0, count)
		for i := uint32(0); i < count && i < 1<<16; i++ {
			elems = append(elems, reprNode(o, n.elem))
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case kindGroup:
		members := make([]string, 0, len(n.children))
		for _, child := range n.children {
			members = append(members, reprNode(o, child))
		}
		return "(" + strings.Join(members, ", ") + ")"
	default:
		return "<malformed>"
	}
}
