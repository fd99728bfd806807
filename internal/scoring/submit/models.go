// internal/scoring/submit/models.go
package submit

// Result summarizes one submission pass. Queued counts subjects whose pending
// job row landed; Skipped counts subjects passed over without an attempt
// (no evidence, lease held elsewhere, duplicate pending row); Errors collects
// per-subject failures.
type Result struct {
	Queued  int      `json:"queued"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
