package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/JSingmin/CSharpAnalyser/internal/service/analysis"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
)

// Failure is a file or analyzer that did not complete.
type Failure struct {
	Path     string `json:"path"`
	Analyzer string `json:"analyzer,omitempty"`
	Error    string `json:"error"`
}

// RunReport is the rendered result of one analysis run.
type RunReport struct {
	RunID    string              `json:"run_id"`
	Version  string              `json:"-"`
	Findings []models.ReportItem `json:"findings"`
	Summary  models.Summary      `json:"summary"`
	Failures []Failure           `json:"failures,omitempty"`
}

// NewRunReport converts an analysis result. Unreadable files come first,
// then analyzer failures, each in input order.
func NewRunReport(res *analysis.Result, version string) *RunReport {
	r := &RunReport{
		RunID:    res.RunID,
		Version:  version,
		Findings: res.Items,
		Summary:  res.Summary,
	}
	if r.Findings == nil {
		r.Findings = []models.ReportItem{}
	}
	if res.Errors.HasErrors() {
		for _, e := range res.Errors.Errors {
			r.Failures = append(r.Failures, Failure{Path: e.Path, Error: e.Err.Error()})
		}
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, Failure{Path: f.Path, Analyzer: f.Analyzer, Error: f.Err.Error()})
	}
	return r
}

func (r *RunReport) RenderData() any {
	return r
}

func location(item models.ReportItem) string {
	return fmt.Sprintf("%s:%d:%d", item.FileName, item.LineNumber, item.Column)
}

func (r *RunReport) summaryLine() string {
	s := r.Summary
	noun := "findings"
	if s.TotalFindings == 1 {
		noun = "finding"
	}
	return fmt.Sprintf("%d %s in %d files (%d cached, %d failed)",
		s.TotalFindings, noun, s.FilesAnalyzed, s.FilesCached, s.FilesFailed)
}

func (r *RunReport) RenderText(w io.Writer, colored bool) error {
	if len(r.Findings) > 0 {
		rows := make([][]string, len(r.Findings))
		for i, item := range r.Findings {
			sev := string(item.Severity)
			if colored {
				sev = SeverityColor(item.Severity, sev)
			}
			rows[i] = []string{sev, string(item.Rule), location(item), item.Message}
		}
		table := NewTable("Findings", []string{"Severity", "Rule", "Location", "Message"}, rows, nil, nil)
		if err := table.RenderText(w, colored); err != nil {
			return err
		}
	}

	if len(r.Failures) > 0 {
		writeTitle(w, "Failures", colored, color.Bold, color.FgRed)
		for _, f := range r.Failures {
			if f.Analyzer != "" {
				fmt.Fprintf(w, "  %s [%s]: %s\n", f.Path, f.Analyzer, f.Error)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
			}
		}
		fmt.Fprintln(w)
	}

	if colored {
		color.New(color.Bold).Fprintln(w, r.summaryLine())
	} else {
		fmt.Fprintln(w, r.summaryLine())
	}
	return nil
}

func (r *RunReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# csanalyser report\n\n")
	fmt.Fprintf(w, "%s\n\n", r.summaryLine())

	if len(r.Findings) > 0 {
		rows := make([][]string, len(r.Findings))
		for i, item := range r.Findings {
			rows[i] = []string{string(item.Severity), string(item.Rule), "`" + location(item) + "`", item.Message}
		}
		table := NewTable("Findings", []string{"Severity", "Rule", "Location", "Message"}, rows, nil, nil)
		if err := table.RenderMarkdown(w); err != nil {
			return err
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "## Failures\n\n")
		for _, f := range r.Failures {
			who := "`" + f.Path + "`"
			if f.Analyzer != "" {
				who += " (" + f.Analyzer + ")"
			}
			fmt.Fprintf(w, "- %s: %s\n", who, strings.ReplaceAll(f.Error, "\n", " "))
		}
		fmt.Fprintln(w)
	}
	return nil
}
