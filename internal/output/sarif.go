package output

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/registry"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
)

// SARIF 2.1.0 log structures. Only the parts csanalyser emits are modeled.

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	toolName     = "csanalyser"
	toolURI      = "https://github.com/JSingmin/CSharpAnalyser"

	// fingerprintKey names the partial fingerprint for result matching
	// across runs.
	fingerprintKey = "csanalyser/v1"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool               `json:"tool"`
	AutomationDetails *sarifAutomationDetails `json:"automationDetails,omitempty"`
	Results           []sarifResult           `json:"results"`
	Invocations       []sarifInvocation       `json:"invocations,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	ShortDescription     sarifMessage           `json:"shortDescription"`
	FullDescription      sarifMessage           `json:"fullDescription"`
	DefaultConfiguration sarifRuleConfiguration `json:"defaultConfiguration"`
}

type sarifRuleConfiguration struct {
	Level string `json:"level"`
}

type sarifAutomationDetails struct {
	GUID string `json:"guid"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

// RenderSARIF writes the report as a SARIF 2.1.0 log.
func (r *RunReport) RenderSARIF(w io.Writer) error {
	rules := registry.Rules()
	index := make(map[models.RuleID]int, len(rules))
	driver := sarifDriver{
		Name:           toolName,
		Version:        r.Version,
		InformationURI: toolURI,
		Rules:          make([]sarifRule, len(rules)),
	}
	for i, rule := range rules {
		index[rule.ID] = i
		driver.Rules[i] = sarifRule{
			ID:                   string(rule.ID),
			Name:                 rule.Name,
			ShortDescription:     sarifMessage{Text: rule.Message},
			FullDescription:      sarifMessage{Text: rule.Description},
			DefaultConfiguration: sarifRuleConfiguration{Level: string(models.SeverityOf(rule.ID))},
		}
	}

	run := sarifRun{
		Tool:    sarifTool{Driver: driver},
		Results: make([]sarifResult, 0, len(r.Findings)),
	}
	if r.RunID != "" {
		run.AutomationDetails = &sarifAutomationDetails{GUID: r.RunID}
	}

	for _, item := range r.Findings {
		idx, ok := index[item.Rule]
		if !ok {
			idx = -1
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:    string(item.Rule),
			RuleIndex: idx,
			Level:     string(item.Severity),
			Message:   sarifMessage{Text: item.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: filepath.ToSlash(item.FileName)},
					Region:           &sarifRegion{StartLine: item.LineNumber, StartColumn: item.Column},
				},
			}},
			PartialFingerprints: map[string]string{fingerprintKey: item.Fingerprint},
		})
	}

	if len(r.Failures) > 0 {
		inv := sarifInvocation{ExecutionSuccessful: true}
		for _, f := range r.Failures {
			text := f.Error
			if f.Analyzer != "" {
				text = f.Analyzer + ": " + text
			}
			inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sarifNotification{
				Level:   "error",
				Message: sarifMessage{Text: text},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: filepath.ToSlash(f.Path)},
					},
				}},
			})
		}
		run.Invocations = []sarifInvocation{inv}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs:    []sarifRun{run},
	})
}
