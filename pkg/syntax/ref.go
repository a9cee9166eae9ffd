package syntax

import (
	"errors"
	"fmt"
)

// ErrDanglingRef is returned when a Ref does not point into a live tree.
var ErrDanglingRef = errors.New("dangling node reference")

// Ref is a lazy reference to a node. It stays resolvable as long as the tree
// it points into is reachable.
type Ref struct {
	tree *Tree
	id   NodeID
}

// IsZero reports whether the reference points nowhere.
func (r Ref) IsZero() bool { return r.tree == nil || !r.id.IsValid() }

// Node returns the referenced node.
func (r Ref) Node() Node { return Node{tree: r.tree, id: r.id} }

// Resolve maps the reference to its source location.
func (r Ref) Resolve() (Location, error) {
	d := r.tree.get(r.id)
	if d == nil {
		return Location{}, fmt.Errorf("%w: node %d", ErrDanglingRef, r.id)
	}
	return Location{Path: r.tree.path, Line: d.start.Line, Column: d.start.Column}, nil
}
