// Package resolve finds declarations of names and infers static types of
// expressions by climbing and inspecting the syntax tree.
package resolve

import (
	"errors"
	"fmt"

	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

var (
	// ErrDeclarationNotFound is returned when no enclosing scope declares a name.
	ErrDeclarationNotFound = errors.New("declaration not found")
	// ErrNilIdentifier is returned when FindDeclaration is called without a name.
	ErrNilIdentifier = errors.New("nil identifier")
)

// scopeRule searches one scope node for a declaration of name.
type scopeRule func(scope syntax.Node, name string) syntax.Node

var scopeRules = map[syntax.Kind]scopeRule{
	syntax.KindBlock:           findInBlock,
	syntax.KindTypeDeclaration: findInType,
	syntax.KindMethod:          findInSignature,
	syntax.KindConstructor:     findInSignature,
}

// FindDeclaration returns the node declaring the name referenced by ref. The
// search starts at ref's parent and climbs the enclosing scopes.
func FindDeclaration(ref syntax.Node) (syntax.Node, error) {
	if ref.IsNil() {
		return syntax.Node{}, ErrNilIdentifier
	}
	name := ref.Text()
	for scope := ref.Parent(); !scope.IsNil(); scope = scope.Parent() {
		rule, ok := scopeRules[scope.Kind()]
		if !ok {
			continue
		}
		if decl := rule(scope, name); !decl.IsNil() {
			return decl, nil
		}
	}
	return syntax.Node{}, fmt.Errorf("%w: %q", ErrDeclarationNotFound, name)
}

// Declarator returns the declarator of a local or field declaration that
// introduces name.
func Declarator(decl syntax.Node, name string) syntax.Node {
	for _, d := range decl.ChildrenOfKind(syntax.KindVariableDeclarator) {
		if d.Name() == name {
			return d
		}
	}
	return syntax.Node{}
}

func findInBlock(block syntax.Node, name string) syntax.Node {
	for _, decl := range block.ChildrenOfKind(syntax.KindLocalDeclaration) {
		if !Declarator(decl, name).IsNil() {
			return decl
		}
	}
	return syntax.Node{}
}

func findInType(typ syntax.Node, name string) syntax.Node {
	for _, field := range typ.ChildrenOfKind(syntax.KindField) {
		if !Declarator(field, name).IsNil() {
			return field
		}
	}
	for _, kind := range []syntax.Kind{syntax.KindProperty, syntax.KindMethod} {
		for _, member := range typ.ChildrenOfKind(kind) {
			if member.Name() == name {
				return member
			}
		}
	}
	return syntax.Node{}
}

func findInSignature(method syntax.Node, name string) syntax.Node {
	for _, param := range method.ChildrenOfKind(syntax.KindParameter) {
		if param.Name() == name {
			return param
		}
	}
	return syntax.Node{}
}
