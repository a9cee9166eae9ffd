// Package syntax provides a read-only, kind-tagged syntax tree stored in an arena.
//
// Trees are produced by a language front end (see package csharp) and consumed by
// the analyzers. Nodes are addressed by 1-based ids; id 0 means "no node".
package syntax

// NodeID indexes a node inside its Tree.
type NodeID uint32

// NoNode is the zero NodeID.
const NoNode NodeID = 0

// IsValid reports whether the id refers to a node.
func (id NodeID) IsValid() bool { return id != NoNode }

// Position is a zero-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Location is a resolved source location. Line and Column are zero based.
type Location struct {
	Path   string
	Line   int
	Column int
}

type node struct {
	kind     Kind
	grammar  string
	role     Role
	text     string
	name     string
	literal  LiteralKind
	parent   NodeID
	children []NodeID
	start    Position
	end      Position
}

// Tree owns every node of one parsed source file.
type Tree struct {
	path  string
	nodes []node
	root  NodeID
}

// Path returns the source path the tree was built from.
func (t *Tree) Path() string { return t.path }

// Root returns the root node, or the nil node for an empty tree.
func (t *Tree) Root() Node {
	if t == nil || !t.root.IsValid() {
		return Node{}
	}
	return Node{tree: t, id: t.root}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Node returns the node with the given id, or the nil node if it does not exist.
func (t *Tree) Node(id NodeID) Node {
	if t.get(id) == nil {
		return Node{}
	}
	return Node{tree: t, id: id}
}

func (t *Tree) get(id NodeID) *node {
	if t == nil || id == NoNode || int(id) > len(t.nodes) {
		return nil
	}
	return &t.nodes[id-1]
}

// Spec describes a node to be added through a Builder.
type Spec struct {
	Kind    Kind
	Grammar string
	Role    Role
	Text    string
	Name    string
	Literal LiteralKind
	Start   Position
	End     Position
}

// Builder appends nodes to a new Tree. The first node added becomes the root.
type Builder struct {
	tree *Tree
}

// NewBuilder starts a tree for the given source path.
func NewBuilder(path string, capHint int) *Builder {
	return &Builder{tree: &Tree{path: path, nodes: make([]node, 0, capHint)}}
}

// Add appends a node under parent (NoNode for the root) and returns its id.
func (b *Builder) Add(parent NodeID, s Spec) NodeID {
	b.tree.nodes = append(b.tree.nodes, node{
		kind:    s.Kind,
		grammar: s.Grammar,
		role:    s.Role,
		text:    s.Text,
		name:    s.Name,
		literal: s.Literal,
		parent:  parent,
		start:   s.Start,
		end:     s.End,
	})
	id := NodeID(len(b.tree.nodes))
	if p := b.tree.get(parent); p != nil {
		p.children = append(p.children, id)
	} else if !b.tree.root.IsValid() {
		b.tree.root = id
	}
	return id
}

// Tree returns the built tree. The builder must not be used afterwards.
func (b *Builder) Tree() *Tree {
	t := b.tree
	b.tree = nil
	return t
}
