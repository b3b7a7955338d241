// Package batch drives a job list through one model concurrently.
package batch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/progress"
	"github.com/amishk599/jobimpact/internal/retry"
)

// Runner fans a job list out to a Predictor and gathers every outcome.
// One failing job never stops the others.
type Runner struct {
	policy   retry.Policy
	reporter progress.Reporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a runner. reporter may be nil.
func NewRunner(policy retry.Policy, reporter progress.Reporter, logger *slog.Logger) *Runner {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Runner{
		policy:   policy,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes every job against client, at most slots-many at a time, and
// returns the outcomes in input order. Blank jobs produce no outcome.
func (r *Runner) Run(ctx context.Context, modelID string, client model.Predictor, slots retry.Slots, jobs []string) model.RunResult {
	processor := retry.NewProcessor(client, slots, r.policy, r.logger.With("model", modelID))

	total := 0
	for _, j := range jobs {
		if strings.TrimSpace(j) != "" {
			total++
		}
	}
	r.logger.Info("processing jobs", "model", modelID, "jobs", total)
	r.reporter.Start(modelID, total)

	results := make([]retry.Result, len(jobs))
	var g errgroup.Group
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = processor.Process(ctx, job)
			if out, ok := results[i].Outcome(); ok {
				r.reporter.Advance(out)
			}
			return nil
		})
	}
	_ = g.Wait()
	r.reporter.Finish()

	run := model.RunResult{Model: modelID, Timestamp: r.now()}
	for _, res := range results {
		out, ok := res.Outcome()
		if !ok {
			continue
		}
		if out.Status == model.StatusFailure {
			r.logger.Error("job failed",
				"model", modelID,
				"job", out.Job,
				"kind", res.Kind.String(),
				"attempts", out.Attempts,
				"error", out.Err,
			)
		}
		run.Outcomes = append(run.Outcomes, out)
	}

	succeeded := run.Succeeded()
	r.logger.Info("batch complete",
		"model", modelID,
		"succeeded", succeeded,
		"failed", run.Failed(),
		"total", len(run.Outcomes),
	)
	if succeeded == 0 {
		r.logger.Error("no successful results", "model", modelID)
	}
	return run
}
