// internal/scoring/audit/indexer.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talent-scoring/internal/common/database"
	"talent-scoring/internal/common/errors"
	"talent-scoring/internal/common/logger"
)

// Outcome is the searchable record of one resolved scoring job. It mirrors
// the ledger row plus resolution metadata, indexed per job for ops queries
// like "all timeouts last week".
type Outcome struct {
	JobID        string    `json:"jobId"`
	TalentID     string    `json:"talentId"`
	SessionID    string    `json:"sessionId"`
	Status       string    `json:"status"`
	OverallScore *int      `json:"overallScore,omitempty"`
	CriteriaMet  []string  `json:"criteriaMet,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	ResolvedAt   time.Time `json:"resolvedAt"`
}

// Indexer ships job outcomes to Elasticsearch. Indexing is best effort: the
// ledger row is the source of truth and a failed index never fails the
// harvest.
type Indexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

// NewIndexer returns nil when es is nil, and every method on a nil Indexer is
// a no-op, so callers don't branch on whether auditing is configured.
func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	if es == nil {
		return nil
	}
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-indexer"}),
	}
}

// IndexOutcome writes one outcome document, keyed by job ID so a retried
// harvest overwrites rather than duplicates.
func (i *Indexer) IndexOutcome(ctx context.Context, outcome Outcome) error {
	if i == nil {
		return nil
	}

	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal audit outcome: %w", err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithContext(ctx),
		i.es.Client.Index.WithDocumentID(outcome.JobID),
	)
	if err != nil {
		return errors.NewAuditIndexFailedError(outcome.JobID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewAuditIndexFailedError(outcome.JobID, fmt.Errorf("elasticsearch: %s", res.Status()))
	}

	i.logger.Debug("job outcome indexed", map[string]interface{}{
		"jobId":  outcome.JobID,
		"status": outcome.Status,
	})

	return nil
}
