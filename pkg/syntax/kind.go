package syntax

// Kind identifies the syntactic category of a node. Analysis code dispatches on it.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindOther
	KindCompilationUnit
	KindNamespace
	KindTypeDeclaration
	KindField
	KindProperty
	KindMethod
	KindConstructor
	KindParameter
	KindBlock
	KindLocalDeclaration
	KindVariableDeclarator
	KindPredefinedType
	KindImplicitType
	KindIdentifier
	KindGenericName
	KindQualifiedName
	KindMemberAccess
	KindInvocation
	KindObjectCreation
	KindArgumentList
	KindArgument
	KindBinary
	KindParenthesized
	KindLiteral
	KindThis
)

var kindNames = [...]string{
	KindInvalid:            "invalid",
	KindOther:              "other",
	KindCompilationUnit:    "compilation_unit",
	KindNamespace:          "namespace",
	KindTypeDeclaration:    "type_declaration",
	KindField:              "field",
	KindProperty:           "property",
	KindMethod:             "method",
	KindConstructor:        "constructor",
	KindParameter:          "parameter",
	KindBlock:              "block",
	KindLocalDeclaration:   "local_declaration",
	KindVariableDeclarator: "variable_declarator",
	KindPredefinedType:     "predefined_type",
	KindImplicitType:       "implicit_type",
	KindIdentifier:         "identifier",
	KindGenericName:        "generic_name",
	KindQualifiedName:      "qualified_name",
	KindMemberAccess:       "member_access",
	KindInvocation:         "invocation",
	KindObjectCreation:     "object_creation",
	KindArgumentList:       "argument_list",
	KindArgument:           "argument",
	KindBinary:             "binary",
	KindParenthesized:      "parenthesized",
	KindLiteral:            "literal",
	KindThis:               "this",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsName reports whether nodes of this kind are name references carrying their text.
func (k Kind) IsName() bool {
	return k == KindIdentifier || k == KindGenericName
}

// Role is the position a child occupies within its parent.
type Role uint8

const (
	RoleNone Role = iota
	RoleType
	RoleValue
	RoleLeft
	RoleRight
	RoleCallee
	RoleArguments
	RoleReceiver
	RoleMember
	RoleBody
	RoleInner
)

var roleNames = [...]string{
	RoleNone:      "none",
	RoleType:      "type",
	RoleValue:     "value",
	RoleLeft:      "left",
	RoleRight:     "right",
	RoleCallee:    "callee",
	RoleArguments: "arguments",
	RoleReceiver:  "receiver",
	RoleMember:    "member",
	RoleBody:      "body",
	RoleInner:     "inner",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "none"
}

// LiteralKind classifies literal tokens.
type LiteralKind uint8

const (
	LiteralNone LiteralKind = iota
	LiteralString
	LiteralInteger
	LiteralReal
	LiteralBoolean
	LiteralChar
	LiteralNull
)
