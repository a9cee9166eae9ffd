package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax/csharp"
)

const sample = `class Account
{
    private string owner = "root";
    private int count;

    public string Name { get; set; }

    public decimal GetID()
    {
        return 1m;
    }

    public void Update(string suffix, int retries)
    {
        var label = "id" + suffix;
        var total = 10;
        long big = 5;
        string copy = label;
        Log(owner, count, Name, this.GetID(), GetID(), suffix, retries, copy, total, big, missing, (retries));
    }
}
`

func parse(t *testing.T, source string) *syntax.Tree {
	t.Helper()
	tree, err := csharp.ParseString(source)
	require.NoError(t, err)
	return tree
}

// logArgs returns the argument expressions of the Log call in sample.
func logArgs(t *testing.T, tree *syntax.Tree) []syntax.Node {
	t.Helper()
	var args []syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindInvocation && n.Child(syntax.RoleCallee).Text() == "Log" {
			for _, a := range n.Child(syntax.RoleArguments).ChildrenOfKind(syntax.KindArgument) {
				args = append(args, a.Child(syntax.RoleInner))
			}
			return false
		}
		return true
	})
	require.NotEmpty(t, args)
	return args
}

func TestFindDeclaration(t *testing.T) {
	tree := parse(t, sample)
	args := logArgs(t, tree)

	tests := []struct {
		arg  int
		kind syntax.Kind
	}{
		{0, syntax.KindField},
		{1, syntax.KindField},
		{2, syntax.KindProperty},
		{5, syntax.KindParameter},
		{6, syntax.KindParameter},
		{7, syntax.KindLocalDeclaration},
	}
	for _, tt := range tests {
		t.Run(args[tt.arg].Text(), func(t *testing.T) {
			decl, err := FindDeclaration(args[tt.arg])
			require.NoError(t, err)
			assert.Equal(t, tt.kind, decl.Kind())
		})
	}

	getID := args[3].Child(syntax.RoleCallee).Child(syntax.RoleMember)
	decl, err := FindDeclaration(getID)
	require.NoError(t, err)
	assert.Equal(t, syntax.KindMethod, decl.Kind())
	assert.Equal(t, "GetID", decl.Name())
}

func TestFindDeclarationNotFound(t *testing.T) {
	tree := parse(t, sample)
	args := logArgs(t, tree)

	_, err := FindDeclaration(args[10])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeclarationNotFound))
	assert.Contains(t, err.Error(), "missing")
}

func TestFindDeclarationNil(t *testing.T) {
	_, err := FindDeclaration(syntax.Node{})
	assert.True(t, errors.Is(err, ErrNilIdentifier))
}

func TestFindDeclarationInnermostBlockWins(t *testing.T) {
	tree := parse(t, `class A
{
    int x;
    void M(int x)
    {
        string x = "shadow";
        Use(x);
    }
}
`)
	var use syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindInvocation {
			use = n.Child(syntax.RoleArguments).ChildrenOfKind(syntax.KindArgument)[0].Child(syntax.RoleInner)
		}
		return true
	})
	decl, err := FindDeclaration(use)
	require.NoError(t, err)
	assert.Equal(t, syntax.KindLocalDeclaration, decl.Kind())
}

func TestResolveType(t *testing.T) {
	tree := parse(t, sample)
	args := logArgs(t, tree)

	want := []Type{
		TypeString,  // owner
		TypeInt,     // count
		TypeString,  // Name
		TypeDecimal, // this.GetID()
		TypeDecimal, // GetID()
		TypeString,  // suffix
		TypeInt,     // retries
		TypeString,  // copy
		TypeInt,     // total
		TypeLong,    // big
	}
	for i, w := range want {
		got, err := ResolveType(args[i])
		require.NoError(t, err, "arg %d", i)
		assert.Equal(t, w, got, "arg %d (%s)", i, args[i].Text())
	}

	got, err := ResolveType(args[11])
	require.NoError(t, err)
	assert.Equal(t, TypeInt, got, "parenthesized")
}

func TestResolveTypeImplicitFromConcatenation(t *testing.T) {
	tree := parse(t, sample)
	var label syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindVariableDeclarator && n.Name() == "label" {
			label = n
		}
		return true
	})
	require.False(t, label.IsNil())

	// A binary expression has no rule, so the implicit type stays unknown.
	got, err := ResolveType(label)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, got)
}

func TestResolveTypeNotFoundPropagates(t *testing.T) {
	tree := parse(t, sample)
	args := logArgs(t, tree)

	got, err := ResolveType(args[10])
	assert.True(t, errors.Is(err, ErrDeclarationNotFound))
	assert.Equal(t, TypeUnknown, got)
}

func TestResolveTypeLiterals(t *testing.T) {
	tests := []struct {
		lit  syntax.LiteralKind
		text string
		want Type
	}{
		{syntax.LiteralString, `"x"`, TypeString},
		{syntax.LiteralString, `$"x{y}"`, TypeString},
		{syntax.LiteralChar, `'c'`, TypeChar},
		{syntax.LiteralBoolean, "true", TypeBool},
		{syntax.LiteralInteger, "42", TypeInt},
		{syntax.LiteralInteger, "42L", TypeLong},
		{syntax.LiteralInteger, "42u", TypeUInt},
		{syntax.LiteralInteger, "42UL", TypeULong},
		{syntax.LiteralInteger, "0xFF", TypeInt},
		{syntax.LiteralReal, "3.14", TypeDouble},
		{syntax.LiteralReal, "3.14f", TypeFloat},
		{syntax.LiteralReal, "3.14m", TypeDecimal},
		{syntax.LiteralReal, "1e5", TypeDouble},
		{syntax.LiteralNull, "null", TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			b := syntax.NewBuilder("", 1)
			b.Add(syntax.NoNode, syntax.Spec{Kind: syntax.KindLiteral, Literal: tt.lit, Text: tt.text})
			got, err := ResolveType(b.Tree().Root())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveTypeUnregisteredKind(t *testing.T) {
	tree := parse(t, sample)
	var binary syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindBinary {
			binary = n
		}
		return true
	})
	got, err := ResolveType(binary)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, got)

	got, err = ResolveType(syntax.Node{})
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, got)
}

func TestResolveTypeFrameworkAliases(t *testing.T) {
	tree := parse(t, `class A
{
    void M(String s, Int32 n, System.Decimal d, Customer c) { }
}
`)
	var params []syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindParameter {
			params = append(params, n)
		}
		return true
	})
	require.Len(t, params, 4)

	want := []Type{TypeString, TypeInt, TypeDecimal, Type("Customer")}
	for i, p := range params {
		got, err := ResolveType(p)
		require.NoError(t, err)
		assert.Equal(t, want[i], got, p.Name())
	}
}

func TestResolveTypeUnsupportedKeyword(t *testing.T) {
	b := syntax.NewBuilder("A.cs", 4)
	param := b.Add(syntax.NoNode, syntax.Spec{Kind: syntax.KindParameter, Name: "p"})
	b.Add(param, syntax.Spec{Kind: syntax.KindPredefinedType, Role: syntax.RoleType, Text: "dynamic"})
	tree := b.Tree()

	_, err := ResolveType(tree.Root())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.False(t, errors.Is(err, ErrDeclarationNotFound))
}

func TestResolveTypeMissingInitializer(t *testing.T) {
	b := syntax.NewBuilder("A.cs", 4)
	local := b.Add(syntax.NoNode, syntax.Spec{Kind: syntax.KindLocalDeclaration})
	b.Add(local, syntax.Spec{Kind: syntax.KindImplicitType, Role: syntax.RoleType, Text: "var"})
	b.Add(local, syntax.Spec{Kind: syntax.KindVariableDeclarator, Name: "x"})
	tree := b.Tree()

	_, err := ResolveType(tree.Root())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInitializer))
}

func TestResolveTypeBreaksCycles(t *testing.T) {
	tree := parse(t, `class A
{
    void M()
    {
        var a = b;
        var b = a;
        Use(a);
    }
}
`)
	var arg syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindArgument {
			arg = n.Child(syntax.RoleInner)
		}
		return true
	})
	got, err := ResolveType(arg)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, got)
}
