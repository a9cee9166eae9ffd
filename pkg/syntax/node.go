package syntax

// Node is a handle to a node inside a Tree. The zero Node is the nil node;
// every accessor on it returns a zero value.
type Node struct {
	tree *Tree
	id   NodeID
}

func (n Node) data() *node { return n.tree.get(n.id) }

// IsNil reports whether n refers to no node.
func (n Node) IsNil() bool { return n.data() == nil }

// ID returns the node id within its tree.
func (n Node) ID() NodeID { return n.id }

// Tree returns the owning tree.
func (n Node) Tree() *Tree { return n.tree }

func (n Node) Kind() Kind {
	if d := n.data(); d != nil {
		return d.kind
	}
	return KindInvalid
}

// Grammar returns the front end's node type, e.g. "class_declaration".
func (n Node) Grammar() string {
	if d := n.data(); d != nil {
		return d.grammar
	}
	return ""
}

func (n Node) Role() Role {
	if d := n.data(); d != nil {
		return d.role
	}
	return RoleNone
}

// Text returns the token text of names, keywords and literals, and the operator of
// binary expressions.
func (n Node) Text() string {
	if d := n.data(); d != nil {
		return d.text
	}
	return ""
}

// Name returns the declared name of a declaring node.
func (n Node) Name() string {
	if d := n.data(); d != nil {
		return d.name
	}
	return ""
}

func (n Node) Literal() LiteralKind {
	if d := n.data(); d != nil {
		return d.literal
	}
	return LiteralNone
}

func (n Node) Start() Position {
	if d := n.data(); d != nil {
		return d.start
	}
	return Position{}
}

func (n Node) End() Position {
	if d := n.data(); d != nil {
		return d.end
	}
	return Position{}
}

func (n Node) Parent() Node {
	if d := n.data(); d != nil && d.parent.IsValid() {
		return Node{tree: n.tree, id: d.parent}
	}
	return Node{}
}

// Children returns the ordered children of n.
func (n Node) Children() []Node {
	d := n.data()
	if d == nil || len(d.children) == 0 {
		return nil
	}
	out := make([]Node, len(d.children))
	for i, id := range d.children {
		out[i] = Node{tree: n.tree, id: id}
	}
	return out
}

// Child returns the first child with the given role.
func (n Node) Child(role Role) Node {
	d := n.data()
	if d == nil {
		return Node{}
	}
	for _, id := range d.children {
		if n.tree.get(id).role == role {
			return Node{tree: n.tree, id: id}
		}
	}
	return Node{}
}

// ChildrenOfKind returns the direct children of the given kind, in order.
func (n Node) ChildrenOfKind(kind Kind) []Node {
	d := n.data()
	if d == nil {
		return nil
	}
	var out []Node
	for _, id := range d.children {
		if n.tree.get(id).kind == kind {
			out = append(out, Node{tree: n.tree, id: id})
		}
	}
	return out
}

// Ancestor returns the nearest proper ancestor of the given kind.
func (n Node) Ancestor(kind Kind) Node {
	for p := n.Parent(); !p.IsNil(); p = p.Parent() {
		if p.Kind() == kind {
			return p
		}
	}
	return Node{}
}

// Ref returns a lazy location reference to n.
func (n Node) Ref() Ref {
	return Ref{tree: n.tree, id: n.id}
}

// Inspect walks the subtree rooted at n in pre-order. If fn returns false the
// children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if n.IsNil() || !fn(n) {
		return
	}
	for _, id := range n.data().children {
		Inspect(Node{tree: n.tree, id: id}, fn)
	}
}

// Descendants returns every node below n in pre-order, excluding n.
func Descendants(n Node) []Node {
	var out []Node
	Inspect(n, func(c Node) bool {
		if c != n {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Names returns n (if it is a name) and every name node below it, in document order.
func Names(n Node) []Node {
	var out []Node
	Inspect(n, func(c Node) bool {
		if c.Kind().IsName() {
			out = append(out, c)
		}
		return true
	})
	return out
}
