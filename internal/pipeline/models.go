package pipeline

// Result is the per-tab outcome of a stage run.
type Result struct {
	TabID     int64  `json:"tab_id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	SiteKind  string `json:"site_kind,omitempty"`
	Error     error  `json:"-"`
	ErrorType string `json:"error_type,omitempty"`
	ErrorMsg  string `json:"error,omitempty"`
}

// Stats aggregates a stage run for the final report.
type Stats struct {
	TotalTabs        int     `json:"total_tabs"`
	Succeeded        int     `json:"succeeded"`
	Failed           int     `json:"failed"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
}

// RunReport is the JSON document printed at the end of a stage run.
type RunReport struct {
	Status  string   `json:"status"`
	Results []Result `json:"results"`
	Stats   Stats    `json:"stats"`
}

// buildReport folds results into the printable report. Status is
// "success", "partial_failure", or "failure" when nothing succeeded.
func buildReport(results []Result, elapsed float64) *RunReport {
	report := &RunReport{Results: results}
	for i := range results {
		if results[i].Error != nil {
			results[i].ErrorMsg = results[i].Error.Error()
			report.Stats.Failed++
		} else {
			report.Stats.Succeeded++
		}
	}
	report.Stats.TotalTabs = len(results)
	report.Stats.TotalTimeSeconds = elapsed

	switch {
	case len(results) == 0 || report.Stats.Failed == 0:
		report.Status = "success"
	case report.Stats.Succeeded == 0:
		report.Status = "failure"
	default:
		report.Status = "partial_failure"
	}
	return report
}
