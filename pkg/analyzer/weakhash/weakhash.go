// Package weakhash reports calls that reference weak hash algorithms.
package weakhash

import (
	"strings"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

// Name is the rule name.
const Name = "weak-hash"

// DefaultAlgorithms are matched as case-sensitive substrings of callee names.
var DefaultAlgorithms = []string{"MD5", "SHA1"}

// Analyzer detects weak hash algorithm usage.
type Analyzer struct {
	algorithms []string
	findings   []models.Finding
}

// Compile-time check that Analyzer implements TreeAnalyzer.
var _ analyzer.TreeAnalyzer = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithAlgorithms replaces the list of weak algorithm names.
func WithAlgorithms(names ...string) Option {
	return func(a *Analyzer) {
		a.algorithms = names
	}
}

// New creates a new weak hash analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{algorithms: DefaultAlgorithms}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements analyzer.TreeAnalyzer.
func (a *Analyzer) Name() string { return Name }

// Findings implements analyzer.TreeAnalyzer.
func (a *Analyzer) Findings() []models.Finding { return a.findings }

// Visit implements analyzer.TreeAnalyzer. Every matching name in a callee
// produces its own finding at the call.
func (a *Analyzer) Visit(tree *syntax.Tree) error {
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() != syntax.KindInvocation {
			return true
		}
		for _, name := range syntax.Names(n.Child(syntax.RoleCallee)) {
			if a.isWeak(name.Text()) {
				a.findings = append(a.findings, models.Finding{
					Rule:     models.RuleWeakHash,
					Message:  models.MessageWeakHash,
					Location: n.Ref(),
				})
			}
		}
		return true
	})
	return nil
}

func (a *Analyzer) isWeak(name string) bool {
	for _, alg := range a.algorithms {
		if strings.Contains(name, alg) {
			return true
		}
	}
	return false
}
