package object

import "github.com/marmos91/busybus/internal/bbuserr"

// kind discriminates a single node in a parsed description string.
type kind int

const (
	kindInt32 kind = iota
	kindUint32
	kindByte
	kindString
	kindArray
	kindGroup
)

// node is one parsed element of a description: either a scalar, an array
// (count-prefixed, single element descriptor), or a group (a parenthesised
// sequence of child descriptors).
type node struct {
	kind     kind
	elem     *node   // populated for kindArray
	children []*node // populated for kindGroup and for the implicit top-level sequence
}

// parseDescription parses a description string into an implicit top-level
// group whose children are the sequence of descriptors in s. A description
// is valid iff every '(' has a matching ')' and every 'A' is followed by
// exactly one element descriptor.
func parseDescription(s string) (*node, error) {
	const op = "object.parseDescription"
	p := &descParser{s: s}
	children, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		// Leftover input means an unmatched ')'.
		return nil, bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	return &node{kind: kindGroup, children: children}, nil
}

type descParser struct {
	s   string
	pos int
}

func (p *descParser) parseSequence() ([]*node, error) {
	var nodes []*node
	for p.pos < len(p.s) && p.s[p.pos] != ')' {
		n, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *descParser) parseOne() (*node, error) {
	const op = "object.parseOne"
	if p.pos >= len(p.s) {
		return nil, bbuserr.New(bbuserr.ObjInvFmt, op)
	}
	c := p.s[p.pos]
	switch c {
	case 'i':
		p.pos++
		return &node{kind: kindInt32}, nil
	case 'u':
		p.pos++
		return &node{kind: kindUint32}, nil
	case 'b':
		p.pos++
		return &node{kind: kindByte}, nil
	case 's':
		p.pos++
		return &node{kind: kindString}, nil
	case 'A':
		p.pos++
		elem, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		return &node{kind: kindArray, elem: elem}, nil
	case '(':
		p.pos++
		children, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return nil, bbuserr.New(bbuserr.ObjInvFmt, op)
		}
		p.pos++
		return &node{kind: kindGroup, children: children}, nil
	default:
		return nil, bbuserr.New(bbuserr.ObjInvFmt, op)
	}
}
