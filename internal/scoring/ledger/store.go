// internal/scoring/ledger/store.go
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"talent-scoring/internal/common/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrDuplicatePending is returned when the partial unique index rejects a
	// second pending row for the same talent. Submitters record it as a skip.
	ErrDuplicatePending = errors.New("DUPLICATE_PENDING_JOB")
	// ErrNotPending is returned when a terminal write targets a job that is no
	// longer pending. Terminal states never transition again.
	ErrNotPending = errors.New("JOB_NOT_PENDING")
)

// Store persists the scoring job ledger. Every write touches a single row;
// there are no cross-row transactions, so a partial run leaves all previously
// written rows valid.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ledger"}),
	}
}

// InsertPending records a freshly triggered session as a pending job.
func (s *Store) InsertPending(ctx context.Context, talentID, sessionID string) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		TalentID:  talentID,
		SessionID: sessionID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scoring_jobs (id, talent_id, session_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.TalentID, job.SessionID, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: talent %s", ErrDuplicatePending, talentID)
		}
		return nil, fmt.Errorf("insert pending job: %w", err)
	}

	s.logger.Info("pending job recorded", map[string]interface{}{
		"jobId":     job.ID,
		"talentId":  talentID,
		"sessionId": sessionID,
	})

	return job, nil
}

// PendingJobs returns the oldest pending jobs, capped at limit. Each returned
// row costs the harvester one external round trip, so the cap bounds the
// invocation's wall clock.
func (s *Store) PendingJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, talent_id, session_id, status, created_at
		FROM scoring_jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var status string
		if err := rows.Scan(&j.ID, &j.TalentID, &j.SessionID, &status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		j.Status = Status(status)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending jobs: %w", err)
	}

	return jobs, nil
}

// MarkCompleted resolves a pending job with its rounded score, the raw
// breakdown and the full provider response snapshot for audit.
func (s *Store) MarkCompleted(ctx context.Context, jobID string, overallScore int, criteriaScores, rawResponse json.RawMessage) error {
	if criteriaScores == nil {
		criteriaScores = json.RawMessage("[]")
	}
	if rawResponse == nil {
		rawResponse = json.RawMessage("{}")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE scoring_jobs
		SET status = 'completed',
		    overall_score = $2,
		    criteria_scores = $3,
		    raw_response = $4,
		    completed_at = $5
		WHERE id = $1 AND status = 'pending'`,
		jobID, overallScore, []byte(criteriaScores), []byte(rawResponse), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	return s.requirePendingRow(result, jobID)
}

// MarkFailed resolves a pending job with a terminal error message.
func (s *Store) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scoring_jobs
		SET status = 'failed',
		    error_message = $2,
		    completed_at = $3
		WHERE id = $1 AND status = 'pending'`,
		jobID, errorMessage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}

	return s.requirePendingRow(result, jobID)
}

func (s *Store) requirePendingRow(result sql.Result, jobID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %s", ErrNotPending, jobID)
	}
	return nil
}
