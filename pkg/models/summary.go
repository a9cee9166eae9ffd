package models

// Summary provides aggregate statistics for a run.
type Summary struct {
	TotalFindings int            `json:"total_findings"`
	ByRule        map[string]int `json:"by_rule"`
	ByFile        map[string]int `json:"by_file"`
	FilesAnalyzed int            `json:"files_analyzed"`
	FilesCached   int            `json:"files_cached"`
	FilesFailed   int            `json:"files_failed"`
}

// NewSummary creates an initialized summary.
func NewSummary() Summary {
	return Summary{
		ByRule: make(map[string]int),
		ByFile: make(map[string]int),
	}
}

// Add updates the summary with a report item.
func (s *Summary) Add(item ReportItem) {
	s.TotalFindings++
	s.ByRule[string(item.Rule)]++
	s.ByFile[item.FileName]++
}

// AddAll updates the summary with every item.
func (s *Summary) AddAll(items []ReportItem) {
	for _, item := range items {
		s.Add(item)
	}
}
