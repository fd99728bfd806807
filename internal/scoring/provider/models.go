// internal/scoring/provider/models.go
package provider

// Session statuses reported by the external scoring service.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusError     = "error"
)

// CreateSessionRequest declares the evaluation type and subject identity for
// a new scoring session.
type CreateSessionRequest struct {
	EvaluationType string `json:"evaluationType"`
	BundleType     string `json:"bundleType"`
	SubjectName    string `json:"subjectName"`
}

// Session is the provider's handle for one evaluation attempt.
type Session struct {
	ID string `json:"sessionId"`
}

// CriterionScore is one entry of the provider's per-criterion breakdown.
type CriterionScore struct {
	Label  string  `json:"label"`
	Rating string  `json:"rating"`
	Score  float64 `json:"score"`
}

// Results carries the scored outcome of a completed session. OverallScore is
// a pointer so a results object with the field omitted is distinguishable
// from a genuine zero score.
type Results struct {
	OverallScore   *float64         `json:"overallScore,omitempty"`
	CriteriaScores []CriterionScore `json:"criteriaScores"`
}

// SessionStatus is the polled state of a session.
type SessionStatus struct {
	Status       string   `json:"status"`
	Results      *Results `json:"results,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// IsTerminalFailure reports whether the provider has given up on the session.
func (s *SessionStatus) IsTerminalFailure() bool {
	return s.Status == StatusFailed || s.Status == StatusError
}

// HasScore reports whether a completed session actually carries a usable
// numeric score. The provider has been observed returning completed statuses
// with a missing or empty results object; neither is publishable.
func (s *SessionStatus) HasScore() bool {
	return s.Status == StatusCompleted && s.Results != nil && s.Results.OverallScore != nil
}
