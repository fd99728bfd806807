// internal/scoring/harvest/harvester.go
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"talent-scoring/internal/common/errors"
	"talent-scoring/internal/common/logger"
	"talent-scoring/internal/common/metrics"
	"talent-scoring/internal/notify"
	"talent-scoring/internal/scoring/audit"
	"talent-scoring/internal/scoring/criteria"
	"talent-scoring/internal/scoring/ledger"
	"talent-scoring/internal/scoring/provider"
)

type statusFetcher interface {
	GetSessionStatus(ctx context.Context, sessionID string) (*provider.SessionStatus, error)
}

type jobLedger interface {
	PendingJobs(ctx context.Context, limit int) ([]ledger.Job, error)
	MarkCompleted(ctx context.Context, jobID string, overallScore int, criteriaScores, rawResponse json.RawMessage) error
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

type profileWriter interface {
	UpdateScore(ctx context.Context, talentID string, score int, criteriaMet []string) error
}

type outcomeIndexer interface {
	IndexOutcome(ctx context.Context, outcome audit.Outcome) error
}

// Harvester polls pending jobs against the external service and resolves the
// ones that reached a terminal state. Jobs the service is still working on
// stay pending for the next invocation, except when they exceed the staleness
// cutoff, which force-fails them.
type Harvester struct {
	provider   statusFetcher
	jobs       jobLedger
	profiles   profileWriter
	auditor    outcomeIndexer
	notifier   notify.Notifier
	logger     logger.Logger
	batchSize  int
	staleAfter time.Duration
	pollDelay  time.Duration

	// injectable for tests
	sleep func(time.Duration)
	now   func() time.Time
}

type Option func(*Harvester)

// WithAuditor attaches an outcome indexer. Indexing failures are logged and
// never affect the ledger write.
func WithAuditor(a outcomeIndexer) Option {
	return func(h *Harvester) { h.auditor = a }
}

// WithNotifier attaches a score-published notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(h *Harvester) { h.notifier = n }
}

func New(p statusFetcher, jobs jobLedger, profiles profileWriter, log logger.Logger,
	batchSize int, staleAfter, pollDelay time.Duration, opts ...Option) *Harvester {

	h := &Harvester{
		provider:   p,
		jobs:       jobs,
		profiles:   profiles,
		logger:     log.WithFields(map[string]interface{}{"component": "harvester"}),
		batchSize:  batchSize,
		staleAfter: staleAfter,
		pollDelay:  pollDelay,
		sleep:      time.Sleep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes one harvest pass. Each job is handled independently; a failure
// on one is recorded in the result and never aborts the rest of the batch.
func (h *Harvester) Run(ctx context.Context) Result {
	started := h.now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("harvest").Observe(h.now().Sub(started).Seconds())
	}()

	result := Result{}

	jobs, err := h.jobs.PendingJobs(ctx, h.batchSize)
	if err != nil {
		h.recordError(&result, "", errors.NewQueryFailedError("pending-jobs", err))
		return result
	}
	if len(jobs) == 0 {
		h.logger.Info("no pending jobs to harvest", nil)
		return result
	}

	h.logger.Info("harvesting pending jobs", map[string]interface{}{
		"count": len(jobs),
	})

	for i, job := range jobs {
		if i > 0 && h.pollDelay > 0 {
			h.sleep(h.pollDelay)
		}
		result.Checked++
		h.harvestOne(ctx, &job, &result)
	}

	h.logger.Info("harvest pass finished", map[string]interface{}{
		"checked":   result.Checked,
		"completed": result.Completed,
		"failed":    result.Failed,
		"errors":    len(result.Errors),
	})

	return result
}

func (h *Harvester) harvestOne(ctx context.Context, job *ledger.Job, result *Result) {
	log := h.logger.WithFields(map[string]interface{}{
		"jobId":     job.ID,
		"talentId":  job.TalentID,
		"sessionId": job.SessionID,
	})

	status, err := h.provider.GetSessionStatus(ctx, job.SessionID)
	if err != nil {
		if provider.IsTransport(err) {
			// Leave the job pending; a later invocation retries the poll.
			log.Warn("status poll failed, job left pending", map[string]interface{}{
				"error": err.Error(),
			})
			h.recordError(result, "job "+job.ID, errors.NewScoringServiceError("get-session-status", err))
			return
		}
		h.resolveFailed(ctx, job, fmt.Sprintf("status rejected by service: %v", err), result, log)
		return
	}

	switch {
	case status.HasScore():
		h.resolveCompleted(ctx, job, status, result, log)

	case status.Status == provider.StatusCompleted:
		// Completed with an empty results object carries nothing publishable.
		h.resolveFailed(ctx, job, "completed without results", result, log)

	case status.IsTerminalFailure():
		msg := status.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("session ended in status %q", status.Status)
		}
		h.resolveFailed(ctx, job, msg, result, log)

	default:
		if age := job.Age(h.now()); age > h.staleAfter {
			timeoutErr := errors.NewJobTimeoutError(job.ID, age)
			h.resolveFailed(ctx, job, timeoutErr.Message, result, log)
			return
		}
		log.Debug("job still processing", nil)
	}
}

func (h *Harvester) resolveCompleted(ctx context.Context, job *ledger.Job, status *provider.SessionStatus, result *Result, log logger.Logger) {
	score := int(math.Round(*status.Results.OverallScore))

	rated := make([]criteria.Rated, 0, len(status.Results.CriteriaScores))
	for _, cs := range status.Results.CriteriaScores {
		rated = append(rated, criteria.Rated{Label: cs.Label, Rating: cs.Rating, Score: cs.Score})
	}
	criteriaMet := criteria.MapToCriteria(rated)

	breakdown, err := json.Marshal(status.Results.CriteriaScores)
	if err != nil {
		breakdown = json.RawMessage("[]")
	}
	raw, err := json.Marshal(status)
	if err != nil {
		raw = json.RawMessage("{}")
	}

	if err := h.jobs.MarkCompleted(ctx, job.ID, score, breakdown, raw); err != nil {
		h.recordError(result, "job "+job.ID, errors.NewLedgerWriteFailedError(err))
		return
	}
	result.Completed++
	metrics.JobsHarvested.WithLabelValues("completed").Inc()

	// A failed profile write leaves the ledger completed but the profile
	// stale until the talent is rescored.
	if err := h.profiles.UpdateScore(ctx, job.TalentID, score, criteriaMet); err != nil {
		log.Error("profile score write failed after job completion", map[string]interface{}{
			"error": err.Error(),
		})
		h.recordError(result, "job "+job.ID, errors.NewProfileWriteFailedError(job.TalentID, err))
	} else if h.notifier != nil {
		if err := h.notifier.NotifyScorePublished(ctx, notify.ScorePublished{
			TalentID: job.TalentID,
			JobID:    job.ID,
			Score:    score,
			Criteria: criteriaMet,
		}); err != nil {
			log.Warn("score-published notification failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	h.indexOutcome(ctx, audit.Outcome{
		JobID:        job.ID,
		TalentID:     job.TalentID,
		SessionID:    job.SessionID,
		Status:       string(ledger.StatusCompleted),
		OverallScore: &score,
		CriteriaMet:  criteriaMet,
		ResolvedAt:   h.now().UTC(),
	}, log)

	log.Info("job completed", map[string]interface{}{
		"score":       score,
		"criteriaMet": criteriaMet,
	})
}

func (h *Harvester) resolveFailed(ctx context.Context, job *ledger.Job, message string, result *Result, log logger.Logger) {
	if err := h.jobs.MarkFailed(ctx, job.ID, message); err != nil {
		h.recordError(result, "job "+job.ID, errors.NewLedgerWriteFailedError(err))
		return
	}
	result.Failed++
	metrics.JobsHarvested.WithLabelValues("failed").Inc()

	h.indexOutcome(ctx, audit.Outcome{
		JobID:        job.ID,
		TalentID:     job.TalentID,
		SessionID:    job.SessionID,
		Status:       string(ledger.StatusFailed),
		ErrorMessage: message,
		ResolvedAt:   h.now().UTC(),
	}, log)

	log.Warn("job failed", map[string]interface{}{
		"reason": message,
	})
}

// recordError tracks one surfaced pipeline error in the run result and the
// per-category error counter.
func (h *Harvester) recordError(result *Result, scope string, serr *errors.StandardError) {
	metrics.PipelineErrors.WithLabelValues(errors.GetErrorCategory(serr.Code)).Inc()
	if scope != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", scope, serr.Error()))
		return
	}
	result.Errors = append(result.Errors, serr.Error())
}

func (h *Harvester) indexOutcome(ctx context.Context, outcome audit.Outcome, log logger.Logger) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.IndexOutcome(ctx, outcome); err != nil {
		log.Warn("audit index failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
