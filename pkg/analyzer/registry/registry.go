// Package registry lists the built-in rules in their fixed run order.
package registry

import (
	"errors"
	"fmt"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/process"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/sqlcommand"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/unused"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/weakhash"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
)

// ErrUnknownRule is returned when a rule name is not registered.
var ErrUnknownRule = errors.New("unknown rule")

// Options configure analyzer construction.
type Options struct {
	EntryPoints []string
}

// Rule describes a built-in analyzer.
type Rule struct {
	Name           string
	ID             models.RuleID
	Message        string
	Description    string
	DefaultEnabled bool
	// Global rules decide only after every tree of a run has been visited.
	Global bool
	New    func(Options) analyzer.TreeAnalyzer
}

var rules = []Rule{
	{
		Name:        sqlcommand.NameConcat,
		ID:          models.RuleSQLConcat,
		Message:     models.MessageSQLConcat,
		Description: "SqlCommand text built with the + operator",
		New:         func(Options) analyzer.TreeAnalyzer { return sqlcommand.NewConcat() },
	},
	{
		Name:           sqlcommand.NameUnsafeConcat,
		ID:             models.RuleSQLUnsafeConcat,
		Message:        models.MessageSQLUnsafeConcat,
		Description:    "SqlCommand text concatenated with values that are not numeric",
		DefaultEnabled: true,
		New:            func(Options) analyzer.TreeAnalyzer { return sqlcommand.NewUnsafeConcat() },
	},
	{
		Name:           process.Name,
		ID:             models.RuleProcessConcat,
		Message:        models.MessageProcessConcat,
		Description:    "Process.Start arguments concatenated with values that are not numeric",
		DefaultEnabled: true,
		New:            func(Options) analyzer.TreeAnalyzer { return process.New() },
	},
	{
		Name:           weakhash.Name,
		ID:             models.RuleWeakHash,
		Message:        models.MessageWeakHash,
		Description:    "Calls referencing MD5 or SHA1",
		DefaultEnabled: true,
		New:            func(Options) analyzer.TreeAnalyzer { return weakhash.New() },
	},
	{
		Name:           unused.Name,
		ID:             models.RuleUnusedMethod,
		Message:        models.MessageUnusedMethod,
		Description:    "Methods with no call matching owner, name and argument count",
		DefaultEnabled: true,
		Global:         true,
		New: func(o Options) analyzer.TreeAnalyzer {
			return unused.New(unused.WithEntryPoints(o.EntryPoints...))
		},
	},
}

// Rules returns every built-in rule in run order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Lookup returns the rule with the given name or id.
func Lookup(name string) (Rule, bool) {
	for _, r := range rules {
		if r.Name == name || string(r.ID) == name {
			return r, true
		}
	}
	return Rule{}, false
}

// DefaultNames returns the names of the rules enabled by default.
func DefaultNames() []string {
	var names []string
	for _, r := range rules {
		if r.DefaultEnabled {
			names = append(names, r.Name)
		}
	}
	return names
}

// Names returns the names of every rule.
func Names() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// Select returns the named rules in run order, regardless of the order of
// names. An empty list selects the default rules.
func Select(names []string) ([]Rule, error) {
	if len(names) == 0 {
		names = DefaultNames()
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		r, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRule, n)
		}
		wanted[r.Name] = true
	}
	var out []Rule
	for _, r := range rules {
		if wanted[r.Name] {
			out = append(out, r)
		}
	}
	return out, nil
}
