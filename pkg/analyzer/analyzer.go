package analyzer

import (
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

// TreeAnalyzer is the interface that all rule analyzers must implement.
// Instances accumulate findings privately and must not be shared between
// goroutines; create one per tree and merge afterwards.
type TreeAnalyzer interface {
	// Name returns the rule name, e.g. "weak-hash".
	Name() string

	// Visit walks one tree. An error aborts the visit of that tree only.
	Visit(tree *syntax.Tree) error

	// Findings returns findings in visitation order.
	Findings() []models.Finding
}

// Collect visits each tree in order and returns the analyzer's findings. It
// stops at the first visit error.
func Collect(a TreeAnalyzer, trees ...*syntax.Tree) ([]models.Finding, error) {
	for _, t := range trees {
		if err := a.Visit(t); err != nil {
			return nil, err
		}
	}
	return a.Findings(), nil
}
