// Package csharp lowers tree-sitter C# syntax trees into syntax.Tree arenas.
package csharp

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/JSingmin/CSharpAnalyser/pkg/parser"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

var errNoTree = errors.New("parse result has no tree")

var kinds = map[string]syntax.Kind{
	"compilation_unit":                  syntax.KindCompilationUnit,
	"namespace_declaration":             syntax.KindNamespace,
	"file_scoped_namespace_declaration": syntax.KindNamespace,
	"class_declaration":                 syntax.KindTypeDeclaration,
	"struct_declaration":                syntax.KindTypeDeclaration,
	"interface_declaration":             syntax.KindTypeDeclaration,
	"record_declaration":                syntax.KindTypeDeclaration,
	"record_struct_declaration":         syntax.KindTypeDeclaration,
	"field_declaration":                 syntax.KindField,
	"property_declaration":              syntax.KindProperty,
	"method_declaration":                syntax.KindMethod,
	"constructor_declaration":           syntax.KindConstructor,
	"parameter":                         syntax.KindParameter,
	"block":                             syntax.KindBlock,
	"local_declaration_statement":       syntax.KindLocalDeclaration,
	"variable_declarator":               syntax.KindVariableDeclarator,
	"predefined_type":                   syntax.KindPredefinedType,
	"void_keyword":                      syntax.KindPredefinedType,
	"implicit_type":                     syntax.KindImplicitType,
	"identifier":                        syntax.KindIdentifier,
	"generic_name":                      syntax.KindGenericName,
	"qualified_name":                    syntax.KindQualifiedName,
	"member_access_expression":          syntax.KindMemberAccess,
	"invocation_expression":             syntax.KindInvocation,
	"object_creation_expression":        syntax.KindObjectCreation,
	"argument_list":                     syntax.KindArgumentList,
	"argument":                          syntax.KindArgument,
	"binary_expression":                 syntax.KindBinary,
	"parenthesized_expression":          syntax.KindParenthesized,
	"this_expression":                   syntax.KindThis,
	"this":                              syntax.KindThis,
}

var literals = map[string]syntax.LiteralKind{
	"string_literal":                 syntax.LiteralString,
	"verbatim_string_literal":        syntax.LiteralString,
	"raw_string_literal":             syntax.LiteralString,
	"interpolated_string_expression": syntax.LiteralString,
	"integer_literal":                syntax.LiteralInteger,
	"real_literal":                   syntax.LiteralReal,
	"boolean_literal":                syntax.LiteralBoolean,
	"character_literal":              syntax.LiteralChar,
	"null_literal":                   syntax.LiteralNull,
}

// Field names differ between grammar releases ("returns" vs "type" for method
// return types), so both spellings are listed.
var fieldRoles = map[string]map[string]syntax.Role{
	"method_declaration":         {"returns": syntax.RoleType, "type": syntax.RoleType, "body": syntax.RoleBody},
	"constructor_declaration":    {"body": syntax.RoleBody},
	"property_declaration":       {"type": syntax.RoleType},
	"parameter":                  {"type": syntax.RoleType},
	"variable_declaration":       {"type": syntax.RoleType},
	"variable_declarator":        {"value": syntax.RoleValue},
	"member_access_expression":   {"expression": syntax.RoleReceiver, "name": syntax.RoleMember},
	"invocation_expression":      {"function": syntax.RoleCallee, "arguments": syntax.RoleArguments},
	"object_creation_expression": {"type": syntax.RoleType, "arguments": syntax.RoleArguments},
	"binary_expression":          {"left": syntax.RoleLeft, "right": syntax.RoleRight},
}

// Declaring nodes keep their name on the node itself instead of as a child.
var named = map[string]bool{
	"namespace_declaration":             true,
	"file_scoped_namespace_declaration": true,
	"class_declaration":                 true,
	"struct_declaration":                true,
	"interface_declaration":             true,
	"record_declaration":                true,
	"record_struct_declaration":         true,
	"property_declaration":              true,
	"method_declaration":                true,
	"constructor_declaration":           true,
	"parameter":                         true,
	"variable_declarator":               true,
}

// Wrapper nodes whose children are attached directly to the wrapper's parent.
var flattened = map[string]bool{
	"variable_declaration": true,
	"equals_value_clause":  true,
	"declaration_list":     true,
	"parameter_list":       true,
}

// Lower converts a parse result into a syntax tree.
func Lower(res *parser.ParseResult) (*syntax.Tree, error) {
	if res == nil || res.Tree == nil {
		return nil, errNoTree
	}
	root := res.Tree.RootNode()
	l := &lowerer{
		src: res.Source,
		b:   syntax.NewBuilder(res.Path, int(root.NamedChildCount())*16),
	}
	l.lower(root, syntax.NoNode, syntax.RoleNone)
	return l.b.Tree(), nil
}

// Parse parses source with p and lowers the result. The tree-sitter tree is
// released before returning.
func Parse(p *parser.Parser, source []byte, path string) (*syntax.Tree, error) {
	return ParseCtx(context.Background(), p, source, path)
}

// ParseCtx is Parse with cancellation.
func ParseCtx(ctx context.Context, p *parser.Parser, source []byte, path string) (*syntax.Tree, error) {
	res, err := p.ParseCtx(ctx, source, path)
	if err != nil {
		return nil, err
	}
	defer res.Tree.Close()
	return Lower(res)
}

// ParseString parses a standalone snippet with a throwaway parser.
func ParseString(source string) (*syntax.Tree, error) {
	p := parser.New()
	defer p.Close()
	return Parse(p, []byte(source), "")
}

type lowerer struct {
	src []byte
	b   *syntax.Builder
}

type span struct {
	start, end uint32
	typ        string
}

func spanOf(n *sitter.Node) span {
	return span{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

func (l *lowerer) lower(n *sitter.Node, parent syntax.NodeID, role syntax.Role) {
	typ := n.Type()
	if typ == "comment" {
		return
	}
	if flattened[typ] {
		l.lowerChildren(n, typ, parent, role)
		return
	}

	spec := syntax.Spec{
		Kind:    kindOf(typ),
		Grammar: typ,
		Role:    role,
		Start:   position(n.StartPoint()),
		End:     position(n.EndPoint()),
	}

	if lit, ok := literals[typ]; ok {
		spec.Kind = syntax.KindLiteral
		spec.Literal = lit
		spec.Text = parser.GetNodeText(n, l.src)
		l.b.Add(parent, spec)
		return
	}

	switch spec.Kind {
	case syntax.KindIdentifier, syntax.KindPredefinedType, syntax.KindImplicitType,
		syntax.KindThis, syntax.KindQualifiedName:
		spec.Text = parser.GetNodeText(n, l.src)
		if spec.Kind == syntax.KindIdentifier && role == syntax.RoleType && spec.Text == "var" {
			spec.Kind = syntax.KindImplicitType
		}
	case syntax.KindGenericName:
		if id := firstNamedOfType(n, "identifier"); id != nil {
			spec.Text = parser.GetNodeText(id, l.src)
		}
	case syntax.KindBinary:
		spec.Text = operator(n)
	}
	if named[typ] {
		if nameNode := nameOf(n); nameNode != nil {
			spec.Name = parser.GetNodeText(nameNode, l.src)
		}
	}

	id := l.b.Add(parent, spec)
	switch spec.Kind {
	case syntax.KindIdentifier, syntax.KindPredefinedType, syntax.KindImplicitType, syntax.KindThis:
		return
	}
	l.lowerChildren(n, typ, id, syntax.RoleNone)
}

// lowerChildren lowers the named children of n under parent. typ is n's grammar
// type; inherited is the role of a flattened wrapper.
func (l *lowerer) lowerChildren(n *sitter.Node, typ string, parent syntax.NodeID, inherited syntax.Role) {
	roles := make(map[span]syntax.Role)
	for field, role := range fieldRoles[typ] {
		if c := n.ChildByFieldName(field); c != nil {
			roles[spanOf(c)] = role
		}
	}

	var skip *span
	if named[typ] {
		if nameNode := nameOf(n); nameNode != nil {
			s := spanOf(nameNode)
			skip = &s
		}
	} else if typ == "generic_name" {
		if id := firstNamedOfType(n, "identifier"); id != nil {
			s := spanOf(id)
			skip = &s
		}
	}

	afterEquals := false
	for i := range int(n.ChildCount()) {
		c := n.Child(i)
		if c == nil {
			continue
		}
		// Some grammar releases emit `this` as an anonymous keyword.
		if !c.IsNamed() && c.Type() != "this" {
			if c.Type() == "=" {
				afterEquals = true
			}
			continue
		}
		s := spanOf(c)
		if skip != nil && s == *skip {
			continue
		}

		role, ok := roles[s]
		switch {
		case ok:
		case typ == "equals_value_clause":
			role = syntax.RoleValue
		case afterEquals && (typ == "variable_declarator" || typ == "parameter"):
			role = syntax.RoleValue
		case (typ == "argument" || typ == "parenthesized_expression") && c.Type() != "name_colon":
			role = syntax.RoleInner
		case flattened[typ]:
			role = inherited
		}
		afterEquals = false
		l.lower(c, parent, role)
	}
}

func kindOf(typ string) syntax.Kind {
	if k, ok := kinds[typ]; ok {
		return k
	}
	return syntax.KindOther
}

func position(p sitter.Point) syntax.Position {
	return syntax.Position{Line: int(p.Row), Column: int(p.Column)}
}

// nameOf returns the name node of a declaring node. Older grammars expose the
// declarator name as a bare identifier child rather than a "name" field.
func nameOf(n *sitter.Node) *sitter.Node {
	if c := n.ChildByFieldName("name"); c != nil {
		return c
	}
	if n.Type() == "variable_declarator" {
		return firstNamedOfType(n, "identifier")
	}
	return nil
}

func firstNamedOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := range int(n.NamedChildCount()) {
		if c := n.NamedChild(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

func operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	for i := range int(n.ChildCount()) {
		if c := n.Child(i); c != nil && !c.IsNamed() {
			return c.Type()
		}
	}
	return ""
}
