// internal/scoring/guard/guard.go
package guard

import (
	"context"
	"fmt"
	"time"

	"talent-scoring/internal/common/logger"
)

// leaseStore is the slice of the Redis wrapper the guard uses.
type leaseStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// SubmissionGuard holds a short per-talent lease while a submission is in
// flight. The ledger's partial unique index is the hard guarantee against
// duplicate pending jobs; the lease just keeps two overlapping runs from
// paying for the same session and uploads before one of them loses the
// insert.
type SubmissionGuard struct {
	store  leaseStore
	ttl    time.Duration
	logger logger.Logger
}

func New(store leaseStore, ttl time.Duration, log logger.Logger) *SubmissionGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SubmissionGuard{
		store:  store,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "submission-guard"}),
	}
}

func leaseKey(talentID string) string {
	return fmt.Sprintf("scoring:submission-lease:%s", talentID)
}

// Acquire takes the lease for one talent. It returns false when another
// submitter already holds it.
func (g *SubmissionGuard) Acquire(ctx context.Context, talentID string) (bool, error) {
	ok, err := g.store.SetNX(ctx, leaseKey(talentID), time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire submission lease: %w", err)
	}
	if !ok {
		g.logger.Debug("submission lease held elsewhere", map[string]interface{}{
			"talentId": talentID,
		})
	}
	return ok, nil
}

// Release drops the lease early. The TTL covers the case where the holder
// crashes before releasing, so a failed Del is logged and swallowed.
func (g *SubmissionGuard) Release(ctx context.Context, talentID string) {
	if err := g.store.Del(ctx, leaseKey(talentID)); err != nil {
		g.logger.Warn("failed to release submission lease", map[string]interface{}{
			"talentId": talentID,
			"error":    err.Error(),
		})
	}
}
