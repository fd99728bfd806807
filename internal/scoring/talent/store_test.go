// internal/scoring/talent/store_test.go
package talent

import (
	"context"
	"testing"
	"time"

	"talent-scoring/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EligibleForScoring(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	updated := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "full_name", "score", "score_updated_at"}).
		AddRow("talent-1", "Ada Lovelace", nil, nil).
		AddRow("talent-2", "Alan Turing", 74, updated)

	mock.ExpectQuery(`SELECT t.id, t.full_name, t.score, t.score_updated_at`).
		WithArgs(3).
		WillReturnRows(rows)

	store := NewStore(db, logger.NewNoOpLogger())
	talents, err := store.EligibleForScoring(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, talents, 2)

	// Never-scored subjects sort first and carry nil score fields.
	assert.Equal(t, "talent-1", talents[0].ID)
	assert.Nil(t, talents[0].Score)
	assert.Nil(t, talents[0].ScoreUpdatedAt)

	require.NotNil(t, talents[1].Score)
	assert.Equal(t, 74, *talents[1].Score)
	require.NotNil(t, talents[1].ScoreUpdatedAt)
	assert.Equal(t, updated, *talents[1].ScoreUpdatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EligibleForScoring_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT t.id, t.full_name, t.score, t.score_updated_at`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "score", "score_updated_at"}))

	store := NewStore(db, logger.NewNoOpLogger())
	talents, err := store.EligibleForScoring(context.Background(), 5)

	require.NoError(t, err)
	assert.Empty(t, talents)
}

func TestStore_EvidenceDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "talent_id", "file_url", "file_name", "file_type"}).
		AddRow("doc-1", "talent-1", "https://docs.example.com/doc-1.pdf", "award.pdf", "application/pdf").
		AddRow("doc-2", "talent-1", "https://docs.example.com/doc-2.pdf", "press.pdf", "application/pdf")

	mock.ExpectQuery(`SELECT id, talent_id, file_url, file_name, file_type`).
		WithArgs("talent-1").
		WillReturnRows(rows)

	store := NewStore(db, logger.NewNoOpLogger())
	docs, err := store.EvidenceDocuments(context.Background(), "talent-1")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "award.pdf", docs[0].FileName)
	assert.Equal(t, "https://docs.example.com/doc-2.pdf", docs[1].FileURL)
}

func TestStore_UpdateScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE talents`).
		WithArgs("talent-1", 82, []byte(`["awards","publications"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.UpdateScore(context.Background(), "talent-1", 82, []string{"awards", "publications"})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateScore_NilCriteriaWritesEmptyArray(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE talents`).
		WithArgs("talent-1", 12, []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.UpdateScore(context.Background(), "talent-1", 12, nil)

	assert.NoError(t, err)
}

func TestStore_UpdateScore_MissingTalent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE talents`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.UpdateScore(context.Background(), "ghost", 50, []string{"awards"})

	assert.Error(t, err)
}
