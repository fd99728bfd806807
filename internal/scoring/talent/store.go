// internal/scoring/talent/store.go
package talent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"talent-scoring/internal/common/logger"
)

// Store reads talent profiles and evidence documents and writes score fields
// on successful harvests.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "talent-store"}),
	}
}

// EligibleForScoring selects talents that have at least one evidence document
// and no in-flight scoring attempt, never-scored first, then stalest score.
// The pending-job exclusion is a read followed by a later insert; the partial
// unique index on the ledger is what actually closes that race.
func (s *Store) EligibleForScoring(ctx context.Context, limit int) ([]Talent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.full_name, t.score, t.score_updated_at
		FROM talents t
		WHERE EXISTS (
			SELECT 1 FROM evidence_documents d WHERE d.talent_id = t.id
		)
		AND NOT EXISTS (
			SELECT 1 FROM scoring_jobs j
			WHERE j.talent_id = t.id AND j.status = 'pending'
		)
		ORDER BY t.score_updated_at ASC NULLS FIRST, t.created_at ASC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query eligible talents: %w", err)
	}
	defer rows.Close()

	var talents []Talent
	for rows.Next() {
		var t Talent
		var score sql.NullInt64
		var updatedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.FullName, &score, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan eligible talent: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			t.Score = &v
		}
		if updatedAt.Valid {
			v := updatedAt.Time
			t.ScoreUpdatedAt = &v
		}
		talents = append(talents, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible talents: %w", err)
	}

	return talents, nil
}

// EvidenceDocuments returns all stored evidence for one talent.
func (s *Store) EvidenceDocuments(ctx context.Context, talentID string) ([]EvidenceDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, talent_id, file_url, file_name, file_type
		FROM evidence_documents
		WHERE talent_id = $1
		ORDER BY created_at ASC`, talentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query evidence documents: %w", err)
	}
	defer rows.Close()

	var docs []EvidenceDocument
	for rows.Next() {
		var d EvidenceDocument
		if err := rows.Scan(&d.ID, &d.TalentID, &d.FileURL, &d.FileName, &d.FileType); err != nil {
			return nil, fmt.Errorf("scan evidence document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence documents: %w", err)
	}

	return docs, nil
}

// UpdateScore overwrites the talent's score fields together. There is no
// merge: each successful harvest replaces score, criteria_met and the
// freshness timestamp as one write.
func (s *Store) UpdateScore(ctx context.Context, talentID string, score int, criteriaMet []string) error {
	if criteriaMet == nil {
		criteriaMet = []string{}
	}
	criteriaJSON, err := json.Marshal(criteriaMet)
	if err != nil {
		return fmt.Errorf("marshal criteria_met: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE talents
		SET score = $2,
		    criteria_met = $3,
		    score_updated_at = $4
		WHERE id = $1`,
		talentID, score, criteriaJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update talent score: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("talent %s not found", talentID)
	}

	s.logger.Info("talent score updated", map[string]interface{}{
		"talentId":    talentID,
		"score":       score,
		"criteriaMet": criteriaMet,
	})

	return nil
}
