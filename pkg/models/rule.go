package models

// RuleID identifies the rule that produced a finding.
type RuleID string

const (
	RuleSQLConcat       RuleID = "CSA001"
	RuleSQLUnsafeConcat RuleID = "CSA002"
	RuleProcessConcat   RuleID = "CSA003"
	RuleWeakHash        RuleID = "CSA004"
	RuleUnusedMethod    RuleID = "CSA005"
)

// Rule messages. Consumers filter on the exact text.
const (
	MessageSQLConcat       = "Concatinated SQL string"
	MessageSQLUnsafeConcat = "Concatinated SQL string is unsafe"
	MessageProcessConcat   = "Concatinated process start arguments are unsafe"
	MessageWeakHash        = "Weak hash algorithm usage detected"
	MessageUnusedMethod    = "Unused method"
)

// Severity mirrors the SARIF result levels.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

var severities = map[RuleID]Severity{
	RuleSQLConcat:       SeverityWarning,
	RuleSQLUnsafeConcat: SeverityError,
	RuleProcessConcat:   SeverityError,
	RuleWeakHash:        SeverityWarning,
	RuleUnusedMethod:    SeverityNote,
}

// SeverityOf returns the severity reported for rule. Unknown rules are warnings.
func SeverityOf(rule RuleID) Severity {
	if s, ok := severities[rule]; ok {
		return s
	}
	return SeverityWarning
}

func (r RuleID) String() string   { return string(r) }
func (s Severity) String() string { return string(s) }
