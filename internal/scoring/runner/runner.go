// internal/scoring/runner/runner.go
package runner

import (
	"context"
	"fmt"
	"time"

	"talent-scoring/internal/common/logger"
	"talent-scoring/internal/common/observability"
	"talent-scoring/internal/scoring/harvest"
	"talent-scoring/internal/scoring/submit"
)

// Phase selects which halves of the pipeline an invocation runs.
type Phase string

const (
	PhaseBoth        Phase = ""
	PhaseHarvestOnly Phase = "harvest-only"
	PhaseSubmitOnly  Phase = "submit-only"
)

// ParsePhase maps the request parameter onto a phase. Anything unrecognized
// runs both phases, matching the bare-trigger default.
func ParsePhase(raw string) Phase {
	switch Phase(raw) {
	case PhaseHarvestOnly:
		return PhaseHarvestOnly
	case PhaseSubmitOnly:
		return PhaseSubmitOnly
	default:
		return PhaseBoth
	}
}

// Summary is the JSON body returned to the cron caller.
type Summary struct {
	Harvest harvest.Result `json:"harvest"`
	NewJobs submit.Result  `json:"newJobs"`
}

type harvester interface {
	Run(ctx context.Context) harvest.Result
}

type submitter interface {
	Run(ctx context.Context) submit.Result
}

// Runner sequences one pipeline invocation: harvest settles yesterday's jobs
// before submission selects today's subjects, so a talent whose job just
// resolved is immediately eligible again.
type Runner struct {
	harvester harvester
	submitter submitter
	obs       *observability.Observability
	logger    logger.Logger
}

func New(h harvester, s submitter, obs *observability.Observability, log logger.Logger) *Runner {
	return &Runner{
		harvester: h,
		submitter: s,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "runner"}),
	}
}

// Run executes the selected phases. A panic in one phase is contained and
// reported as an error on that phase's result, leaving the other phase able
// to run.
func (r *Runner) Run(ctx context.Context, phase Phase) Summary {
	started := time.Now()
	summary := Summary{}

	if phase == PhaseBoth || phase == PhaseHarvestOnly {
		summary.Harvest = r.runHarvest(ctx)
	}
	if phase == PhaseBoth || phase == PhaseSubmitOnly {
		summary.NewJobs = r.runSubmit(ctx)
	}

	if r.obs != nil {
		r.obs.RecordRun(ctx, string(phase))
		r.obs.RecordRunDuration(ctx, time.Since(started), string(phase))
	}

	r.logger.Info("pipeline invocation finished", map[string]interface{}{
		"phase":     string(phase),
		"checked":   summary.Harvest.Checked,
		"completed": summary.Harvest.Completed,
		"failed":    summary.Harvest.Failed,
		"queued":    summary.NewJobs.Queued,
		"skipped":   summary.NewJobs.Skipped,
	})

	return summary
}

func (r *Runner) runHarvest(ctx context.Context) (result harvest.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("harvest phase panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", rec),
			})
			result.Errors = append(result.Errors, fmt.Sprintf("harvest panicked: %v", rec))
		}
	}()
	return r.harvester.Run(ctx)
}

func (r *Runner) runSubmit(ctx context.Context) (result submit.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("submit phase panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", rec),
			})
			result.Errors = append(result.Errors, fmt.Sprintf("submit panicked: %v", rec))
		}
	}()
	return r.submitter.Run(ctx)
}
