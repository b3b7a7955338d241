// Package sweep runs a job list through a sequence of models, one at a time.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/retry"
	"github.com/amishk599/jobimpact/internal/sink"
	"github.com/amishk599/jobimpact/internal/store"
)

// Batcher runs one batch. Implemented by batch.Runner.
type Batcher interface {
	Run(ctx context.Context, modelID string, client model.Predictor, slots retry.Slots, jobs []string) model.RunResult
}

// Saver persists a run. Implemented by sink.FileSink.
type Saver interface {
	Save(ctx context.Context, run model.RunResult) (sink.Files, error)
}

// Orchestrator owns the sweep: it binds every model up front, then runs them
// sequentially. A failing model is recorded and the sweep moves on.
type Orchestrator struct {
	models   []string
	binder   Binder
	runner   Batcher
	saver    Saver
	ledger   model.RunLedger
	notifier model.Notifier
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time

	mu      sync.Mutex
	sweepID string
	runs    []model.ModelRun
}

// New creates an orchestrator. ledger and notifier may be nil.
func New(models []string, binder Binder, runner Batcher, saver Saver, ledger model.RunLedger, notifier model.Notifier, logger *slog.Logger) *Orchestrator {
	if ledger == nil {
		ledger = store.NopLedger{}
	}
	runs := make([]model.ModelRun, len(models))
	for i, m := range models {
		runs[i] = model.ModelRun{Model: m, State: model.StatePending}
	}
	return &Orchestrator{
		models:   models,
		binder:   binder,
		runner:   runner,
		saver:    saver,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
		runs:     runs,
	}
}

// Run sweeps every model over jobs. Per-model errors never abort the sweep;
// a cancelled ctx stops it before the next model.
func (o *Orchestrator) Run(ctx context.Context, jobs []string) {
	o.mu.Lock()
	o.sweepID = o.newID()
	sweepID := o.sweepID
	o.mu.Unlock()

	o.logger.Info("starting sweep", "sweep", sweepID, "models", len(o.models), "jobs", len(jobs))
	if err := o.ledger.BeginSweep(sweepID, o.models); err != nil {
		o.logger.Warn("ledger unavailable", "sweep", sweepID, "error", err)
	}

	targets := make([]Target, len(o.models))
	bindErrs := make([]error, len(o.models))
	for i, m := range o.models {
		targets[i], bindErrs[i] = o.safeBind(ctx, m)
	}
	defer func() {
		for _, t := range targets {
			if t.Close != nil {
				if err := t.Close(); err != nil {
					o.logger.Warn("closing client", "error", err)
				}
			}
		}
	}()

	for i := range o.models {
		if ctx.Err() != nil {
			o.logger.Warn("sweep interrupted", "sweep", sweepID, "remaining", len(o.models)-i)
			break
		}
		o.runModel(ctx, i, targets[i], bindErrs[i], jobs)
	}

	runs := o.Summary()
	done, failed, pending := 0, 0, 0
	for _, r := range runs {
		switch {
		case !r.State.Terminal():
			pending++
		case r.State == model.StateDone:
			done++
		default:
			failed++
		}
	}
	o.logger.Info("sweep complete", "sweep", sweepID, "done", done, "failed", failed, "pending", pending, "models", len(runs))

	if o.notifier != nil {
		if err := o.notifier.Notify(sweepID, runs); err != nil {
			o.logger.Error("sweep notification failed", "sweep", sweepID, "error", err)
		}
	}
}

func (o *Orchestrator) runModel(ctx context.Context, i int, t Target, bindErr error, jobs []string) {
	modelID := o.models[i]
	o.update(i, func(r *model.ModelRun) {
		r.State = model.StateRunning
		r.Provider = t.Provider
		r.StartedAt = o.now()
	})
	o.logger.Info("model started", "model", modelID, "provider", t.Provider, "position", i+1, "of", len(o.models))

	run, err := o.execute(ctx, modelID, t, bindErr, jobs)

	o.update(i, func(r *model.ModelRun) {
		r.FinishedAt = o.now()
		r.Succeeded = run.succeeded
		r.Failed = run.failed
		r.Files = run.files
		if err != nil {
			r.State = model.StateFailed
			r.Err = err
		} else {
			r.State = model.StateDone
		}
	})

	if err != nil {
		o.logger.Error("model failed", "model", modelID, "error", err)
		return
	}
	o.logger.Info("model done", "model", modelID, "succeeded", run.succeeded, "failed", run.failed, "files", len(run.files))
}

// safeBind converts a panic during client construction into a bind error.
func (o *Orchestrator) safeBind(ctx context.Context, modelID string) (t Target, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = Target{}, fmt.Errorf("client construction panicked: %v", r)
		}
	}()
	return o.binder.Bind(ctx, modelID)
}

type modelStats struct {
	succeeded int
	failed    int
	files     []string
}

func (o *Orchestrator) execute(ctx context.Context, modelID string, t Target, bindErr error, jobs []string) (stats modelStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model pipeline panicked: %v", r)
		}
	}()

	if bindErr != nil {
		return stats, fmt.Errorf("create client: %w", bindErr)
	}

	result := o.runner.Run(ctx, modelID, t.Client, t.Slots, jobs)
	stats.succeeded, stats.failed = result.Succeeded(), result.Failed()

	if err := o.ledger.RecordOutcomes(o.SweepID(), modelID, result.Outcomes); err != nil {
		o.logger.Warn("recording outcomes", "model", modelID, "error", err)
	}

	files, err := o.saver.Save(ctx, result)
	stats.files = files.Paths()
	if errors.Is(err, sink.ErrNothingToSave) {
		o.logger.Warn("nothing to save", "model", modelID, "failed", stats.failed)
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (o *Orchestrator) update(i int, fn func(r *model.ModelRun)) {
	o.mu.Lock()
	fn(&o.runs[i])
	run := o.runs[i]
	sweepID := o.sweepID
	o.mu.Unlock()

	if err := o.ledger.RecordState(sweepID, run); err != nil {
		o.logger.Warn("recording state", "model", run.Model, "state", run.State, "error", err)
	}
}

// SweepID returns the id of the current or last sweep.
func (o *Orchestrator) SweepID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sweepID
}

// Summary returns a snapshot of every model's state in configured order.
func (o *Orchestrator) Summary() []model.ModelRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.ModelRun, len(o.runs))
	copy(out, o.runs)
	for i := range out {
		out[i].Files = append([]string(nil), out[i].Files...)
	}
	return out
}
