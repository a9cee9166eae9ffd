package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

// Type is the identity of a resolved static type. It is only compared, never
// interpreted.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeVoid    Type = "void"
	TypeBool    Type = "bool"
	TypeByte    Type = "byte"
	TypeSByte   Type = "sbyte"
	TypeChar    Type = "char"
	TypeShort   Type = "short"
	TypeUShort  Type = "ushort"
	TypeInt     Type = "int"
	TypeUInt    Type = "uint"
	TypeLong    Type = "long"
	TypeULong   Type = "ulong"
	TypeFloat   Type = "float"
	TypeDouble  Type = "double"
	TypeDecimal Type = "decimal"
	TypeObject  Type = "object"
	TypeString  Type = "string"
)

var (
	// ErrUnsupportedType is returned for a built-in type keyword outside the
	// keyword table.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrMissingInitializer is returned for an implicitly typed declaration
	// without an initializer.
	ErrMissingInitializer = errors.New("implicitly typed declaration has no initializer")
)

var keywords = map[string]Type{
	"void":    TypeVoid,
	"bool":    TypeBool,
	"byte":    TypeByte,
	"sbyte":   TypeSByte,
	"char":    TypeChar,
	"short":   TypeShort,
	"ushort":  TypeUShort,
	"int":     TypeInt,
	"uint":    TypeUInt,
	"long":    TypeLong,
	"ulong":   TypeULong,
	"float":   TypeFloat,
	"double":  TypeDouble,
	"decimal": TypeDecimal,
	"object":  TypeObject,
	"string":  TypeString,
}

// Framework names that alias a keyword type.
var aliases = map[string]Type{
	"Boolean": TypeBool,
	"Byte":    TypeByte,
	"SByte":   TypeSByte,
	"Char":    TypeChar,
	"Int16":   TypeShort,
	"UInt16":  TypeUShort,
	"Int32":   TypeInt,
	"UInt32":  TypeUInt,
	"Int64":   TypeLong,
	"UInt64":  TypeULong,
	"Single":  TypeFloat,
	"Double":  TypeDouble,
	"Decimal": TypeDecimal,
	"Object":  TypeObject,
	"String":  TypeString,
}

type rule func(r *resolver, n syntax.Node) (Type, error)

// rules is filled in init because the rules recurse through it.
var rules map[syntax.Kind]rule

func init() {
	rules = map[syntax.Kind]rule{
		syntax.KindLiteral:            literalType,
		syntax.KindLocalDeclaration:   declarationType,
		syntax.KindField:              declarationType,
		syntax.KindVariableDeclarator: declaratorType,
		syntax.KindProperty:           declaredType,
		syntax.KindParameter:          declaredType,
		syntax.KindMethod:             declaredType,
		syntax.KindPredefinedType:     keywordType,
		syntax.KindMemberAccess:       memberType,
		syntax.KindInvocation:         calleeType,
		syntax.KindObjectCreation:     declaredType,
		syntax.KindIdentifier:         nameType,
		syntax.KindGenericName:        nameType,
		syntax.KindParenthesized:      innerType,
	}
}

// ResolveType infers the static type of n. Kinds without a rule resolve to
// TypeUnknown without error.
func ResolveType(n syntax.Node) (Type, error) {
	r := &resolver{seen: make(map[syntax.NodeID]bool)}
	return r.resolve(n)
}

type resolver struct {
	seen map[syntax.NodeID]bool
}

func (r *resolver) resolve(n syntax.Node) (Type, error) {
	if n.IsNil() {
		return TypeUnknown, nil
	}
	fn, ok := rules[n.Kind()]
	if !ok {
		return TypeUnknown, nil
	}
	return fn(r, n)
}

func literalType(_ *resolver, n syntax.Node) (Type, error) {
	switch n.Literal() {
	case syntax.LiteralString:
		return TypeString, nil
	case syntax.LiteralChar:
		return TypeChar, nil
	case syntax.LiteralBoolean:
		return TypeBool, nil
	case syntax.LiteralInteger:
		return integerType(n.Text()), nil
	case syntax.LiteralReal:
		return realType(n.Text()), nil
	}
	return TypeUnknown, nil
}

func integerType(text string) Type {
	text = strings.ToLower(text)
	switch {
	case strings.HasSuffix(text, "ul"), strings.HasSuffix(text, "lu"):
		return TypeULong
	case strings.HasSuffix(text, "u"):
		return TypeUInt
	case strings.HasSuffix(text, "l"):
		return TypeLong
	}
	return TypeInt
}

func realType(text string) Type {
	if text == "" {
		return TypeDouble
	}
	switch strings.ToLower(text[len(text)-1:]) {
	case "f":
		return TypeFloat
	case "m":
		return TypeDecimal
	}
	return TypeDouble
}

// declarationType resolves a local or field declaration statement.
func declarationType(r *resolver, n syntax.Node) (Type, error) {
	typ := n.Child(syntax.RoleType)
	if typ.Kind() != syntax.KindImplicitType {
		return typeName(typ)
	}
	decls := n.ChildrenOfKind(syntax.KindVariableDeclarator)
	if len(decls) == 0 {
		return TypeUnknown, ErrMissingInitializer
	}
	return r.initializer(decls[0])
}

func declaratorType(r *resolver, n syntax.Node) (Type, error) {
	typ := n.Parent().Child(syntax.RoleType)
	if typ.Kind() != syntax.KindImplicitType {
		return typeName(typ)
	}
	return r.initializer(n)
}

func (r *resolver) initializer(decl syntax.Node) (Type, error) {
	value := decl.Child(syntax.RoleValue)
	if value.IsNil() {
		return TypeUnknown, fmt.Errorf("%w: %q", ErrMissingInitializer, decl.Name())
	}
	return r.resolve(value)
}

func declaredType(_ *resolver, n syntax.Node) (Type, error) {
	return typeName(n.Child(syntax.RoleType))
}

func keywordType(_ *resolver, n syntax.Node) (Type, error) {
	return typeName(n)
}

func memberType(r *resolver, n syntax.Node) (Type, error) {
	return r.resolve(n.Child(syntax.RoleMember))
}

func calleeType(r *resolver, n syntax.Node) (Type, error) {
	return r.resolve(n.Child(syntax.RoleCallee))
}

func innerType(r *resolver, n syntax.Node) (Type, error) {
	return r.resolve(n.Child(syntax.RoleInner))
}

func nameType(r *resolver, n syntax.Node) (Type, error) {
	if n.Role() == syntax.RoleType {
		return typeName(n)
	}
	decl, err := FindDeclaration(n)
	if err != nil {
		return TypeUnknown, err
	}
	if r.seen[decl.ID()] {
		return TypeUnknown, nil
	}
	r.seen[decl.ID()] = true
	if decl.Kind() == syntax.KindLocalDeclaration || decl.Kind() == syntax.KindField {
		if d := Declarator(decl, n.Text()); !d.IsNil() {
			return r.resolve(d)
		}
	}
	return r.resolve(decl)
}

// typeName maps a type node to a Type. Named user types keep their simple
// name; shapes such as arrays and nullables are unknown.
func typeName(n syntax.Node) (Type, error) {
	switch n.Kind() {
	case syntax.KindPredefinedType:
		if t, ok := keywords[n.Text()]; ok {
			return t, nil
		}
		return TypeUnknown, fmt.Errorf("%w: %q", ErrUnsupportedType, n.Text())
	case syntax.KindIdentifier, syntax.KindGenericName:
		return named(n.Text()), nil
	case syntax.KindQualifiedName:
		text := n.Text()
		if i := strings.LastIndexByte(text, '.'); i >= 0 {
			text = text[i+1:]
		}
		return named(text), nil
	}
	return TypeUnknown, nil
}

func named(name string) Type {
	if t, ok := aliases[name]; ok {
		return t
	}
	if name == "" {
		return TypeUnknown
	}
	return Type(name)
}
