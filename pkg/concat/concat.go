// Package concat traces values back to the string concatenation they were
// built from and classifies concatenations as safe or unsafe by operand type.
package concat

import (
	"errors"

	"github.com/JSingmin/CSharpAnalyser/pkg/resolve"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

type rule func(t *tracer, n syntax.Node) syntax.Node

// rules is filled in init because the rules recurse through it.
var rules map[syntax.Kind]rule

func init() {
	rules = map[syntax.Kind]rule{
		syntax.KindBinary:             binary,
		syntax.KindArgument:           inner,
		syntax.KindParenthesized:      inner,
		syntax.KindLocalDeclaration:   declaration,
		syntax.KindField:              declaration,
		syntax.KindVariableDeclarator: declarator,
		syntax.KindIdentifier:         reference,
	}
}

// FindConcatenation returns the "+" expression n was built from, following
// variable references through their declarations. It returns the nil node when
// no concatenation is reachable.
func FindConcatenation(n syntax.Node) syntax.Node {
	t := &tracer{seen: make(map[syntax.NodeID]bool)}
	return t.trace(n)
}

type tracer struct {
	seen map[syntax.NodeID]bool
}

func (t *tracer) trace(n syntax.Node) syntax.Node {
	if n.IsNil() {
		return syntax.Node{}
	}
	fn, ok := rules[n.Kind()]
	if !ok {
		return syntax.Node{}
	}
	return fn(t, n)
}

func binary(_ *tracer, n syntax.Node) syntax.Node {
	if n.Text() == "+" {
		return n
	}
	return syntax.Node{}
}

func inner(t *tracer, n syntax.Node) syntax.Node {
	return t.trace(n.Child(syntax.RoleInner))
}

func declaration(t *tracer, n syntax.Node) syntax.Node {
	decls := n.ChildrenOfKind(syntax.KindVariableDeclarator)
	if len(decls) == 0 {
		return syntax.Node{}
	}
	return t.trace(decls[0])
}

func declarator(t *tracer, n syntax.Node) syntax.Node {
	return t.trace(n.Child(syntax.RoleValue))
}

func reference(t *tracer, n syntax.Node) syntax.Node {
	decl, err := resolve.FindDeclaration(n)
	if err != nil {
		// Unresolvable names are treated as carrying no concatenation.
		return syntax.Node{}
	}
	if k := decl.Kind(); k == syntax.KindLocalDeclaration || k == syntax.KindField {
		if d := resolve.Declarator(decl, n.Text()); !d.IsNil() {
			decl = d
		}
	}
	if t.seen[decl.ID()] {
		return syntax.Node{}
	}
	t.seen[decl.ID()] = true
	return t.trace(decl)
}

// IsSafe reports whether both operand types of the binary node are an allowed
// pairing in table. An operand whose declaration cannot be found counts as
// unknown, which is never safe. Other resolution failures are returned.
func IsSafe(binary syntax.Node, table SafeTable) (bool, error) {
	left, err := operandType(binary.Child(syntax.RoleLeft))
	if err != nil {
		return false, err
	}
	right, err := operandType(binary.Child(syntax.RoleRight))
	if err != nil {
		return false, err
	}
	return table.Allows(left, right), nil
}

func operandType(n syntax.Node) (resolve.Type, error) {
	typ, err := resolve.ResolveType(n)
	if errors.Is(err, resolve.ErrDeclarationNotFound) {
		return resolve.TypeUnknown, nil
	}
	return typ, err
}
