// Package servicetree implements the hierarchical, dotted-path method
// registry: a rooted tree whose internal nodes are service segments and
// whose leaves are methods, each either hosted locally or owned by a
// remote service-provider connection.
//
// All operations are serialised by the event loop; the tree performs no
// internal locking of its own (spec §4.3).
package servicetree

import (
	"strings"

	"github.com/marmos91/busybus/internal/object"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// Kind discriminates a method record's implementation.
type Kind int

const (
	// Local methods own a function invoked directly in-process.
	Local Kind = iota
	// Remote methods weakly refer to the provider connection that
	// registered them; their lifetime is tied to that connection.
	Remote
)

// LocalFunc is the signature of an in-process method implementation.
type LocalFunc func(arg *object.Object) (*object.Object, error)

// Record is a tagged union: a local function reference, or the identity of
// a remote provider connection. Owner is compared by == on RemoveProvider,
// so callers should pass a stable, comparable identity (e.g. a *Connection
// pointer) rather than a value type.
type Record struct {
	Kind  Kind
	Local LocalFunc
	Owner any
}

// node is one interior or leaf point in the tree.
type node struct {
	children map[string]*node
	methods  map[string]*Record
}

func newNode() *node {
	return &node{children: map[string]*node{}, methods: map[string]*Record{}}
}

func (n *node) empty() bool { return len(n.children) == 0 && len(n.methods) == 0 }

// Tree is the dotted-path method registry. The zero value is not usable;
// construct with New.
type Tree struct {
	root *node
}

// New returns an empty tree with a present root node.
func New() *Tree { return &Tree{root: newNode()} }

func splitPath(path string) ([]string, error) {
	const op = "servicetree.splitPath"
	if path == "" {
		return nil, bbuserr.New(bbuserr.InvalArg, op)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			// Leading/trailing/doubled dots.
			return nil, bbuserr.New(bbuserr.InvalArg, op)
		}
	}
	return segs, nil
}

// Insert splits path on '.', walks/creates interior nodes, and stores rec
// at the terminal segment. Fails with MRegErr, without mutating the tree,
// if the terminal name already exists as either a subservice or a method
// at that node.
func (t *Tree) Insert(path string, rec *Record) error {
	const op = "servicetree.Insert"
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	// Validate before mutating: walk as far as existing nodes allow,
	// confirming the terminal segment collides with neither a
	// subservice nor a method name. This makes insertion all-or-nothing
	// without needing to unwind partially created nodes.
	cur := t.root
	for _, seg := range segs[:len(segs)-1] {
		if _, isMethod := cur.methods[seg]; isMethod {
			return bbuserr.New(bbuserr.MRegErr, op)
		}
		if child, ok := cur.children[seg]; ok {
			cur = child
			continue
		}
		// Segment doesn't exist yet; validation stops here, the rest
		// of the path is guaranteed free.
		cur = nil
		break
	}

	last := segs[len(segs)-1]
	if cur != nil {
		if _, isMethod := cur.methods[last]; isMethod {
			return bbuserr.New(bbuserr.MRegErr, op)
		}
		if _, isChild := cur.children[last]; isChild {
			return bbuserr.New(bbuserr.MRegErr, op)
		}
	}

	// Validation passed (or the path runs past existing nodes, in which
	// case no collision is possible); create any missing interior nodes
	// and store the record.
	cur = t.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := cur.children[seg]
		if !ok {
			child = newNode()
			cur.children[seg] = child
		}
		cur = child
	}
	cur.methods[last] = rec
	return nil
}

// Locate splits path on '.' and returns the method record at the terminal
// segment, or (nil, false) if missing or the path is malformed.
func (t *Tree) Locate(path string) (*Record, bool) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	cur := t.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := cur.children[seg]
		if !ok {
			return nil, false
		}
		cur = child
	}
	rec, ok := cur.methods[segs[len(segs)-1]]
	return rec, ok
}

// Count returns the total number of methods registered anywhere in the
// tree, local and remote combined.
func (t *Tree) Count() int {
	return countMethods(t.root)
}

func countMethods(n *node) int {
	total := len(n.methods)
	for _, child := range n.children {
		total += countMethods(child)
	}
	return total
}

// RemoveProvider deletes every remote method record owned by owner,
// collapsing interior nodes that become empty as a result.
func (t *Tree) RemoveProvider(owner any) {
	removeProvider(t.root, owner)
}

// removeProvider walks n's children first (so a child that empties out
// can be pruned from n's map on the way back up), then purges n's own
// remote records owned by owner.
func removeProvider(n *node, owner any) {
	for name, child := range n.children {
		removeProvider(child, owner)
		if child.empty() {
			delete(n.children, name)
		}
	}
	for name, rec := range n.methods {
		if rec.Kind == Remote && rec.Owner == owner {
			delete(n.methods, name)
		}
	}
}
