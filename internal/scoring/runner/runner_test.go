// internal/scoring/runner/runner_test.go
package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scoring/internal/common/logger"
	"talent-scoring/internal/scoring/harvest"
	"talent-scoring/internal/scoring/submit"
)

type stubHarvester struct {
	result harvest.Result
	calls  int
	panics bool
}

func (s *stubHarvester) Run(context.Context) harvest.Result {
	s.calls++
	if s.panics {
		panic("harvest blew up")
	}
	return s.result
}

type stubSubmitter struct {
	result submit.Result
	calls  int
	panics bool
}

func (s *stubSubmitter) Run(context.Context) submit.Result {
	s.calls++
	if s.panics {
		panic("submit blew up")
	}
	return s.result
}

func newRunner(h *stubHarvester, s *stubSubmitter) *Runner {
	return New(h, s, nil, logger.NewNoOpLogger())
}

func TestRunner_BothPhasesHarvestFirst(t *testing.T) {
	h := &stubHarvester{result: harvest.Result{Checked: 3, Completed: 2, Failed: 1}}
	s := &stubSubmitter{result: submit.Result{Queued: 2, Skipped: 1}}

	summary := newRunner(h, s).Run(context.Background(), PhaseBoth)

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, 2, summary.Harvest.Completed)
	assert.Equal(t, 2, summary.NewJobs.Queued)
}

func TestRunner_HarvestOnly(t *testing.T) {
	h := &stubHarvester{result: harvest.Result{Checked: 1}}
	s := &stubSubmitter{}

	summary := newRunner(h, s).Run(context.Background(), PhaseHarvestOnly)

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, 0, s.calls)
	assert.Equal(t, 1, summary.Harvest.Checked)
}

func TestRunner_SubmitOnly(t *testing.T) {
	h := &stubHarvester{}
	s := &stubSubmitter{result: submit.Result{Queued: 1}}

	summary := newRunner(h, s).Run(context.Background(), PhaseSubmitOnly)

	assert.Equal(t, 0, h.calls)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, 1, summary.NewJobs.Queued)
}

func TestRunner_HarvestPanicDoesNotStopSubmit(t *testing.T) {
	h := &stubHarvester{panics: true}
	s := &stubSubmitter{result: submit.Result{Queued: 1}}

	summary := newRunner(h, s).Run(context.Background(), PhaseBoth)

	require.Len(t, summary.Harvest.Errors, 1)
	assert.Contains(t, summary.Harvest.Errors[0], "harvest panicked")
	assert.Equal(t, 1, summary.NewJobs.Queued)
}

func TestRunner_SubmitPanicContained(t *testing.T) {
	h := &stubHarvester{}
	s := &stubSubmitter{panics: true}

	summary := newRunner(h, s).Run(context.Background(), PhaseBoth)

	require.Len(t, summary.NewJobs.Errors, 1)
	assert.Contains(t, summary.NewJobs.Errors[0], "submit panicked")
}

func TestParsePhase(t *testing.T) {
	assert.Equal(t, PhaseHarvestOnly, ParsePhase("harvest-only"))
	assert.Equal(t, PhaseSubmitOnly, ParsePhase("submit-only"))
	assert.Equal(t, PhaseBoth, ParsePhase(""))
	assert.Equal(t, PhaseBoth, ParsePhase("everything"))
}

func TestHandler_RejectsBadSecret(t *testing.T) {
	h := &stubHarvester{}
	s := &stubSubmitter{}
	handler := NewHandler(newRunner(h, s), "topsecret", logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodGet, "/cron/scoring", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, h.calls)
	assert.Equal(t, 0, s.calls)
}

func TestHandler_RejectsMissingSecret(t *testing.T) {
	handler := NewHandler(newRunner(&stubHarvester{}, &stubSubmitter{}), "topsecret", logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodGet, "/cron/scoring", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsNonGET(t *testing.T) {
	handler := NewHandler(newRunner(&stubHarvester{}, &stubSubmitter{}), "topsecret", logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodPost, "/cron/scoring", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_RunsAndReturnsSummary(t *testing.T) {
	h := &stubHarvester{result: harvest.Result{Checked: 2, Completed: 1, Failed: 1}}
	s := &stubSubmitter{result: submit.Result{Queued: 3}}
	handler := NewHandler(newRunner(h, s), "topsecret", logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodGet, "/cron/scoring", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var summary Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Harvest.Completed)
	assert.Equal(t, 3, summary.NewJobs.Queued)
}

func TestHandler_PhaseParameter(t *testing.T) {
	h := &stubHarvester{result: harvest.Result{Checked: 1}}
	s := &stubSubmitter{}
	handler := NewHandler(newRunner(h, s), "topsecret", logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodGet, "/cron/scoring?phase=harvest-only", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, 0, s.calls)
}
