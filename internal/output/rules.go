package output

import (
	"strconv"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/registry"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
)

// RuleInfo is the serialized form of one registered rule.
type RuleInfo struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	Default     bool   `json:"default"`
	Description string `json:"description"`
}

// RulesTable lists the registered rules in run order.
func RulesTable() *Table {
	rules := registry.Rules()
	rows := make([][]string, len(rules))
	infos := make([]RuleInfo, len(rules))
	for i, r := range rules {
		sev := string(models.SeverityOf(r.ID))
		rows[i] = []string{r.Name, string(r.ID), sev, strconv.FormatBool(r.DefaultEnabled), r.Description}
		infos[i] = RuleInfo{
			Name:        r.Name,
			ID:          string(r.ID),
			Severity:    sev,
			Default:     r.DefaultEnabled,
			Description: r.Description,
		}
	}
	return NewTable("Rules", []string{"Name", "ID", "Severity", "Default", "Description"}, rows, nil, infos)
}
