// Package unused finds methods that are declared but never called. It
// collects declarations and calls over every visited tree and only decides
// liveness when Findings is called.
package unused

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/resolve"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

// Name is the rule name.
const Name = "unused-method"

// Declaration is a method declared on a type.
type Declaration struct {
	Owner    string
	Name     string
	Arity    int
	Location models.Locator
}

// Call is a call site. An empty Owner means the owner could not be inferred
// and the call matches nothing.
type Call struct {
	Owner string `msgpack:"owner"`
	Name  string `msgpack:"name"`
	Arity int    `msgpack:"arity"`
}

// Analyzer records declarations and calls across trees.
type Analyzer struct {
	entryPoints map[string]struct{}
	decls       []Declaration
	calls       []Call
}

// Compile-time check that Analyzer implements TreeAnalyzer.
var _ analyzer.TreeAnalyzer = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithEntryPoints marks method names that are never reported, such as Main.
func WithEntryPoints(names ...string) Option {
	return func(a *Analyzer) {
		for _, n := range names {
			a.entryPoints[n] = struct{}{}
		}
	}
}

// New creates a new unused method analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{entryPoints: make(map[string]struct{})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements analyzer.TreeAnalyzer.
func (a *Analyzer) Name() string { return Name }

// Visit implements analyzer.TreeAnalyzer.
func (a *Analyzer) Visit(tree *syntax.Tree) error {
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		switch n.Kind() {
		case syntax.KindTypeDeclaration:
			a.declare(n)
		case syntax.KindInvocation:
			if c, ok := callOf(n); ok {
				a.calls = append(a.calls, c)
			}
		}
		return true
	})
	return nil
}

func (a *Analyzer) declare(typ syntax.Node) {
	for _, m := range typ.ChildrenOfKind(syntax.KindMethod) {
		a.decls = append(a.decls, Declaration{
			Owner:    typ.Name(),
			Name:     m.Name(),
			Arity:    len(m.ChildrenOfKind(syntax.KindParameter)),
			Location: m.Ref(),
		})
	}
}

// Records returns the collected declarations and calls.
func (a *Analyzer) Records() ([]Declaration, []Call) {
	return a.decls, a.calls
}

// AddRecords appends previously collected records, e.g. from a cache.
func (a *Analyzer) AddRecords(decls []Declaration, calls []Call) {
	a.decls = append(a.decls, decls...)
	a.calls = append(a.calls, calls...)
}

// Merge appends the records of other, which is typically an instance that
// visited a different tree.
func (a *Analyzer) Merge(other *Analyzer) {
	a.AddRecords(other.decls, other.calls)
}

// Findings implements analyzer.TreeAnalyzer. A declaration is live when a
// call matches its owner, name and arity exactly. Dead declarations are
// reported in declaration order.
func (a *Analyzer) Findings() []models.Finding {
	called := make(map[Call]struct{}, len(a.calls))
	for _, c := range a.calls {
		if c.Owner != "" {
			called[c] = struct{}{}
		}
	}

	live := roaring.New()
	for i, d := range a.decls {
		_, entry := a.entryPoints[d.Name]
		_, ok := called[Call{Owner: d.Owner, Name: d.Name, Arity: d.Arity}]
		if entry || ok {
			live.Add(uint32(i))
		}
	}

	var findings []models.Finding
	for i, d := range a.decls {
		if live.Contains(uint32(i)) {
			continue
		}
		findings = append(findings, models.Finding{
			Rule:     models.RuleUnusedMethod,
			Message:  models.MessageUnusedMethod,
			Location: d.Location,
		})
	}
	return findings
}

func callOf(call syntax.Node) (Call, bool) {
	arity := len(call.Child(syntax.RoleArguments).ChildrenOfKind(syntax.KindArgument))
	callee := call.Child(syntax.RoleCallee)
	switch callee.Kind() {
	case syntax.KindIdentifier, syntax.KindGenericName:
		// Unqualified calls are assumed to target the enclosing type.
		return Call{Owner: enclosingType(call), Name: callee.Text(), Arity: arity}, true
	case syntax.KindMemberAccess:
		member := callee.Child(syntax.RoleMember)
		if !member.Kind().IsName() {
			return Call{}, false
		}
		var owner string
		switch recv := callee.Child(syntax.RoleReceiver); recv.Kind() {
		case syntax.KindThis:
			owner = enclosingType(call)
		case syntax.KindIdentifier:
			owner = receiverType(recv)
		}
		return Call{Owner: owner, Name: member.Text(), Arity: arity}, true
	}
	return Call{}, false
}

func enclosingType(n syntax.Node) string {
	return n.Ancestor(syntax.KindTypeDeclaration).Name()
}

// receiverType guesses the type of a call receiver. A name without a
// declaration in scope is assumed to be a static type.
func receiverType(recv syntax.Node) string {
	decl, err := resolve.FindDeclaration(recv)
	if err != nil {
		return recv.Text()
	}
	switch decl.Kind() {
	case syntax.KindLocalDeclaration, syntax.KindField:
		typ := decl.Child(syntax.RoleType)
		if typ.Kind() != syntax.KindImplicitType {
			return typeText(typ)
		}
		value := resolve.Declarator(decl, recv.Text()).Child(syntax.RoleValue)
		if value.Kind() == syntax.KindObjectCreation {
			return typeText(value.Child(syntax.RoleType))
		}
	case syntax.KindParameter, syntax.KindProperty:
		return typeText(decl.Child(syntax.RoleType))
	}
	return ""
}

func typeText(n syntax.Node) string {
	switch n.Kind() {
	case syntax.KindIdentifier, syntax.KindGenericName, syntax.KindPredefinedType:
		return n.Text()
	case syntax.KindQualifiedName:
		text := n.Text()
		return text[strings.LastIndexByte(text, '.')+1:]
	}
	return ""
}
