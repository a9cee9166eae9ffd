// Package sqlcommand reports SqlCommand constructions whose command text is
// built by string concatenation.
package sqlcommand

import (
	"fmt"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer"
	"github.com/JSingmin/CSharpAnalyser/pkg/concat"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

const (
	// NameConcat reports any concatenated command text.
	NameConcat = "sql-concat"
	// NameUnsafeConcat reports only concatenations outside the safe table.
	NameUnsafeConcat = "sql-unsafe-concat"

	targetType = "SqlCommand"
)

// Analyzer detects concatenated SQL command text.
type Analyzer struct {
	name     string
	rule     models.RuleID
	message  string
	classify bool
	table    concat.SafeTable
	findings []models.Finding
}

// Compile-time check that Analyzer implements TreeAnalyzer.
var _ analyzer.TreeAnalyzer = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithSafeTable replaces the safe concatenation table of the unsafe variant.
func WithSafeTable(t concat.SafeTable) Option {
	return func(a *Analyzer) {
		a.table = t
	}
}

// NewConcat creates an analyzer reporting every concatenated command text.
func NewConcat() *Analyzer {
	return &Analyzer{
		name:    NameConcat,
		rule:    models.RuleSQLConcat,
		message: models.MessageSQLConcat,
	}
}

// NewUnsafeConcat creates an analyzer reporting concatenated command text
// whose operand types are not a safe pairing.
func NewUnsafeConcat(opts ...Option) *Analyzer {
	a := &Analyzer{
		name:     NameUnsafeConcat,
		rule:     models.RuleSQLUnsafeConcat,
		message:  models.MessageSQLUnsafeConcat,
		classify: true,
		table:    concat.DefaultSafeTable(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements analyzer.TreeAnalyzer.
func (a *Analyzer) Name() string { return a.name }

// Findings implements analyzer.TreeAnalyzer.
func (a *Analyzer) Findings() []models.Finding { return a.findings }

// Visit implements analyzer.TreeAnalyzer.
func (a *Analyzer) Visit(tree *syntax.Tree) error {
	var err error
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if err != nil {
			return false
		}
		if n.Kind() != syntax.KindObjectCreation || !isCommand(n) {
			return true
		}
		var report bool
		report, err = a.check(n)
		if report {
			a.findings = append(a.findings, models.Finding{Rule: a.rule, Message: a.message, Location: n.Ref()})
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", a.name, tree.Path(), err)
	}
	return nil
}

func (a *Analyzer) check(creation syntax.Node) (bool, error) {
	args := creation.Child(syntax.RoleArguments).ChildrenOfKind(syntax.KindArgument)
	if len(args) == 0 {
		return false, nil
	}
	bin := concat.FindConcatenation(args[0])
	if bin.IsNil() {
		return false, nil
	}
	if !a.classify {
		return true, nil
	}
	safe, err := concat.IsSafe(bin, a.table)
	if err != nil {
		return false, err
	}
	return !safe, nil
}

func isCommand(creation syntax.Node) bool {
	for _, n := range syntax.Names(creation.Child(syntax.RoleType)) {
		if n.Text() == targetType {
			return true
		}
	}
	return false
}
