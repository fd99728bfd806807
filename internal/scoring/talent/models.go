// internal/scoring/talent/models.go
package talent

import "time"

// Talent is the subset of a talent profile the scoring pipeline reads and
// writes. Only the harvester mutates the score fields, and only on a
// completed outcome; the last successful harvest wins.
type Talent struct {
	ID             string     `json:"id"`
	FullName       string     `json:"fullName"`
	Score          *int       `json:"score,omitempty"`
	ScoreUpdatedAt *time.Time `json:"scoreUpdatedAt,omitempty"`
	CriteriaMet    []string   `json:"criteriaMet"`
}

// EvidenceDocument is a stored evidence file, read-only here. The bytes live
// behind FileURL in external document storage.
type EvidenceDocument struct {
	ID       string `json:"id"`
	TalentID string `json:"talentId"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}
