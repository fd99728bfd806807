// internal/scoring/harvest/models.go
package harvest

// Result summarizes one harvest pass. Checked counts every pending job the
// pass looked at, including ones still processing; Errors collects per-job
// problems that did not resolve the job.
type Result struct {
	Checked   int      `json:"checked"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}
