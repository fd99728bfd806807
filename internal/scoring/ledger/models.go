// internal/scoring/ledger/models.go
package ledger

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of one scoring attempt. A job is born pending
// and resolved exactly once; terminal rows are never mutated again and never
// deleted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one row of the scoring_jobs ledger. A new attempt for the same
// talent is a new row, not an update of an old one.
type Job struct {
	ID             string          `json:"id"`
	TalentID       string          `json:"talentId"`
	SessionID      string          `json:"sessionId"`
	Status         Status          `json:"status"`
	OverallScore   *int            `json:"overallScore,omitempty"`
	CriteriaScores json.RawMessage `json:"criteriaScores,omitempty"`
	RawResponse    json.RawMessage `json:"rawResponse,omitempty"`
	ErrorMessage   *string         `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

// Age returns how long the job has been waiting, relative to now.
func (j *Job) Age(now time.Time) time.Duration {
	return now.Sub(j.CreatedAt)
}
