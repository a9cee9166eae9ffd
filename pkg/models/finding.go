package models

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/JSingmin/CSharpAnalyser/pkg/syntax"
)

// Locator resolves to a source location on demand.
type Locator interface {
	Resolve() (syntax.Location, error)
}

// FixedLocation is a location that has already been resolved, for findings
// restored from a cache after their tree is gone.
type FixedLocation struct {
	Path   string `json:"path" msgpack:"path"`
	Line   int    `json:"line" msgpack:"line"`
	Column int    `json:"column" msgpack:"column"`
}

// Resolve implements Locator.
func (l FixedLocation) Resolve() (syntax.Location, error) {
	return syntax.Location{Path: l.Path, Line: l.Line, Column: l.Column}, nil
}

// Finding is a rule match. Its location stays lazy until it is reported.
type Finding struct {
	Rule     RuleID
	Message  string
	Location Locator
}

// ReportItem is a resolved finding ready for serialization. Line and column
// are 1-based.
type ReportItem struct {
	Rule        RuleID   `json:"rule" msgpack:"rule"`
	Severity    Severity `json:"severity" msgpack:"severity"`
	Message     string   `json:"message" msgpack:"message"`
	FileName    string   `json:"file_name" msgpack:"file_name"`
	LineNumber  int      `json:"line_number" msgpack:"line_number"`
	Column      int      `json:"column" msgpack:"column"`
	Fingerprint string   `json:"fingerprint" msgpack:"fingerprint"`
}

// Resolve converts the finding into a report item.
func (f Finding) Resolve() (ReportItem, error) {
	if f.Location == nil {
		return ReportItem{}, fmt.Errorf("%s: %w", f.Rule, syntax.ErrDanglingRef)
	}
	loc, err := f.Location.Resolve()
	if err != nil {
		return ReportItem{}, fmt.Errorf("%s: %w", f.Rule, err)
	}
	item := ReportItem{
		Rule:       f.Rule,
		Severity:   SeverityOf(f.Rule),
		Message:    f.Message,
		FileName:   loc.Path,
		LineNumber: loc.Line + 1,
		Column:     loc.Column + 1,
	}
	item.Fingerprint = Fingerprint(item)
	return item, nil
}

// ResolveAll resolves findings in order. Unresolvable findings are skipped
// and their errors joined.
func ResolveAll(findings []Finding) ([]ReportItem, error) {
	items := make([]ReportItem, 0, len(findings))
	var errs []error
	for _, f := range findings {
		item, err := f.Resolve()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}
	return items, errors.Join(errs...)
}

// Fingerprint identifies a report item across runs: same rule, file, line
// and message give the same value.
func Fingerprint(item ReportItem) string {
	h := xxhash.New()
	for _, s := range []string{string(item.Rule), item.FileName, fmt.Sprint(item.LineNumber), item.Message} {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
