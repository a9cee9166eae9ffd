// Package process reports Process.Start calls whose argument string is built
// by an unsafe concatenation.
package process

import (
	"fmt"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer"
	"github.com/JSingmin/CSharpAnalyser/pkg/concat"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

// Name is the rule name.
const Name = "process-unsafe-concat"

const (
	className  = "Process"
	methodName = "Start"
	// Ordinal position of the arguments string in Process.Start(fileName, arguments).
	argumentsIndex = 1
)

// Analyzer detects unsafe concatenations passed as process start arguments.
type Analyzer struct {
	table    concat.SafeTable
	findings []models.Finding
}

// Compile-time check that Analyzer implements TreeAnalyzer.
var _ analyzer.TreeAnalyzer = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithSafeTable replaces the safe concatenation table.
func WithSafeTable(t concat.SafeTable) Option {
	return func(a *Analyzer) {
		a.table = t
	}
}

// New creates a new process argument analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{table: concat.DefaultSafeTable()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements analyzer.TreeAnalyzer.
func (a *Analyzer) Name() string { return Name }

// Findings implements analyzer.TreeAnalyzer.
func (a *Analyzer) Findings() []models.Finding { return a.findings }

// Visit implements analyzer.TreeAnalyzer.
func (a *Analyzer) Visit(tree *syntax.Tree) error {
	var err error
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if err != nil {
			return false
		}
		if n.Kind() != syntax.KindInvocation || !isProcessStart(n) {
			return true
		}
		args := n.Child(syntax.RoleArguments).ChildrenOfKind(syntax.KindArgument)
		if len(args) <= argumentsIndex {
			return true
		}
		bin := concat.FindConcatenation(args[argumentsIndex])
		if bin.IsNil() {
			return true
		}
		var safe bool
		if safe, err = concat.IsSafe(bin, a.table); err == nil && !safe {
			a.findings = append(a.findings, models.Finding{
				Rule:     models.RuleProcessConcat,
				Message:  models.MessageProcessConcat,
				Location: n.Ref(),
			})
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", Name, tree.Path(), err)
	}
	return nil
}

// isProcessStart reports whether the last two names of the callee are
// Process and Start.
func isProcessStart(call syntax.Node) bool {
	names := syntax.Names(call.Child(syntax.RoleCallee))
	if len(names) < 2 {
		return false
	}
	return names[len(names)-2].Text() == className && names[len(names)-1].Text() == methodName
}
