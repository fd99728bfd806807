// internal/scoring/submit/submitter.go
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "talent-scoring/internal/common/errors"
	"talent-scoring/internal/common/logger"
	"talent-scoring/internal/common/metrics"
	"talent-scoring/internal/scoring/ledger"
	"talent-scoring/internal/scoring/provider"
	"talent-scoring/internal/scoring/talent"
)

type scoringService interface {
	CreateSession(ctx context.Context, req *provider.CreateSessionRequest) (*provider.Session, error)
	UploadDocument(ctx context.Context, sessionID, fileName string, data []byte) error
	TriggerScoring(ctx context.Context, sessionID string) error
}

type subjectStore interface {
	EligibleForScoring(ctx context.Context, limit int) ([]talent.Talent, error)
	EvidenceDocuments(ctx context.Context, talentID string) ([]talent.EvidenceDocument, error)
}

type jobLedger interface {
	InsertPending(ctx context.Context, talentID, sessionID string) (*ledger.Job, error)
}

type submissionLease interface {
	Acquire(ctx context.Context, talentID string) (bool, error)
	Release(ctx context.Context, talentID string)
}

type documentFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Submitter selects eligible subjects and walks each through session
// creation, evidence transfer, scoring trigger and the pending ledger row.
// Subjects are isolated: a failure on one never aborts the rest of the batch.
type Submitter struct {
	provider    scoringService
	subjects    subjectStore
	jobs        jobLedger
	lease       submissionLease
	fetcher     documentFetcher
	logger      logger.Logger
	batchSize   int
	uploadDelay time.Duration
	submitDelay time.Duration

	evaluationType string
	bundleType     string

	// injectable for tests
	sleep func(time.Duration)
}

func New(p scoringService, subjects subjectStore, jobs jobLedger, lease submissionLease,
	fetcher documentFetcher, log logger.Logger, batchSize int,
	uploadDelay, submitDelay time.Duration, evaluationType, bundleType string) *Submitter {

	return &Submitter{
		provider:       p,
		subjects:       subjects,
		jobs:           jobs,
		lease:          lease,
		fetcher:        fetcher,
		logger:         log.WithFields(map[string]interface{}{"component": "submitter"}),
		batchSize:      batchSize,
		uploadDelay:    uploadDelay,
		submitDelay:    submitDelay,
		evaluationType: evaluationType,
		bundleType:     bundleType,
		sleep:          time.Sleep,
	}
}

// Run executes one submission pass over at most batchSize eligible subjects.
func (s *Submitter) Run(ctx context.Context) Result {
	started := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues("submit").Observe(time.Since(started).Seconds())
	}()

	result := Result{}

	subjects, err := s.subjects.EligibleForScoring(ctx, s.batchSize)
	if err != nil {
		s.recordError(&result, "", apperrors.NewQueryFailedError("eligible-talents", err))
		return result
	}
	if len(subjects) == 0 {
		s.logger.Info("no eligible subjects to submit", nil)
		return result
	}

	s.logger.Info("submitting subjects for scoring", map[string]interface{}{
		"count": len(subjects),
	})

	for i, subject := range subjects {
		if i > 0 && s.submitDelay > 0 {
			s.sleep(s.submitDelay)
		}
		s.submitOne(ctx, subject, &result)
	}

	s.logger.Info("submission pass finished", map[string]interface{}{
		"queued":  result.Queued,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	})

	return result
}

func (s *Submitter) submitOne(ctx context.Context, subject talent.Talent, result *Result) {
	log := s.logger.WithFields(map[string]interface{}{
		"talentId": subject.ID,
	})

	held, err := s.lease.Acquire(ctx, subject.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("talent %s: acquire lease: %v", subject.ID, err))
		return
	}
	if !held {
		result.Skipped++
		metrics.SubjectsSkipped.WithLabelValues("lease_held").Inc()
		log.Info("skipped, submission lease held elsewhere", nil)
		return
	}
	defer s.lease.Release(ctx, subject.ID)

	docs, err := s.subjects.EvidenceDocuments(ctx, subject.ID)
	if err != nil {
		s.recordError(result, "talent "+subject.ID, apperrors.NewQueryFailedError("evidence-documents", err))
		return
	}
	// The eligibility query requires evidence, but documents can be deleted
	// between selection and here.
	if len(docs) == 0 {
		result.Skipped++
		metrics.SubjectsSkipped.WithLabelValues("no_evidence").Inc()
		log.Info("skipped, no evidence documents", nil)
		return
	}

	session, err := s.provider.CreateSession(ctx, &provider.CreateSessionRequest{
		EvaluationType: s.evaluationType,
		BundleType:     s.bundleType,
		SubjectName:    subject.FullName,
	})
	if err != nil {
		s.recordError(result, "talent "+subject.ID, apperrors.NewSessionCreateFailedError(subject.ID, err))
		return
	}
	log = log.WithFields(map[string]interface{}{"sessionId": session.ID})

	uploaded := s.transferEvidence(ctx, session.ID, docs, log)
	if uploaded == 0 {
		s.recordError(result, "talent "+subject.ID, apperrors.NewDocumentTransferError(subject.ID, "all",
			fmt.Errorf("no evidence documents transferred, session %s abandoned", session.ID)))
		return
	}

	if err := s.provider.TriggerScoring(ctx, session.ID); err != nil {
		s.recordError(result, "talent "+subject.ID, apperrors.NewScoringTriggerFailedError(session.ID, err))
		return
	}

	job, err := s.jobs.InsertPending(ctx, subject.ID, session.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicatePending) {
			result.Skipped++
			metrics.SubjectsSkipped.WithLabelValues("duplicate_pending").Inc()
			log.Warn("skipped, pending job already exists", map[string]interface{}{
				"error": apperrors.NewDuplicatePendingError(subject.ID).Error(),
			})
			return
		}
		// The session is already scoring with no ledger row to harvest it.
		log.Error("ledger write failed for triggered session", map[string]interface{}{
			"error": err.Error(),
		})
		s.recordError(result, "talent "+subject.ID, apperrors.NewLedgerWriteFailedError(err))
		return
	}

	result.Queued++
	metrics.JobsSubmitted.Inc()
	log.Info("subject queued for scoring", map[string]interface{}{
		"jobId":     job.ID,
		"documents": uploaded,
	})
}

// recordError tracks one surfaced pipeline error in the run result and the
// per-category error counter.
func (s *Submitter) recordError(result *Result, scope string, serr *apperrors.StandardError) {
	metrics.PipelineErrors.WithLabelValues(apperrors.GetErrorCategory(serr.Code)).Inc()
	if scope != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", scope, serr.Error()))
		return
	}
	result.Errors = append(result.Errors, serr.Error())
}

// transferEvidence downloads and uploads each document in turn, returning how
// many made it across. Individual document failures are tolerated as long as
// at least one succeeds.
func (s *Submitter) transferEvidence(ctx context.Context, sessionID string, docs []talent.EvidenceDocument, log logger.Logger) int {
	uploaded := 0
	for i, doc := range docs {
		if i > 0 && s.uploadDelay > 0 {
			s.sleep(s.uploadDelay)
		}

		data, err := s.fetcher.FetchBytes(ctx, doc.FileURL)
		if err != nil {
			log.Warn("evidence download failed", map[string]interface{}{
				"documentId": doc.ID,
				"error":      err.Error(),
			})
			continue
		}

		if err := s.provider.UploadDocument(ctx, sessionID, doc.FileName, data); err != nil {
			log.Warn("evidence upload failed", map[string]interface{}{
				"documentId": doc.ID,
				"error":      err.Error(),
			})
			continue
		}
		uploaded++
	}
	return uploaded
}
