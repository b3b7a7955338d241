package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobimpact/internal/model"
)

// Kind tags the result of processing one job.
type Kind int

const (
	Skip Kind = iota
	Success
	TransientFailure
	PermanentFailure
)

func (k Kind) String() string {
	switch k {
	case Skip:
		return "skip"
	case Success:
		return "success"
	case TransientFailure:
		return "transient_failure"
	default:
		return "permanent_failure"
	}
}

// Result is what Process returns instead of raising.
type Result struct {
	Kind       Kind
	Job        string
	Prediction model.Prediction
	Err        error
	Attempts   int
}

// Outcome converts r into a model.Outcome. Skipped jobs have no outcome.
func (r Result) Outcome() (model.Outcome, bool) {
	switch r.Kind {
	case Skip:
		return model.Outcome{}, false
	case Success:
		return model.Outcome{Job: r.Job, Status: model.StatusSuccess, Prediction: r.Prediction, Attempts: r.Attempts}, true
	default:
		return model.Outcome{Job: r.Job, Status: model.StatusFailure, Err: r.Err, Attempts: r.Attempts}, true
	}
}

// Slots is the concurrency gate an attempt must pass through.
type Slots interface {
	Acquire(ctx context.Context) error
	Release()
}

// Processor runs one job through a Predictor, retrying transient failures.
// A slot is held only for the duration of each call, never across the backoff wait.
type Processor struct {
	client model.Predictor
	slots  Slots
	policy Policy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a processor. slots may be nil for unbounded calls.
func NewProcessor(client model.Predictor, slots Slots, policy Policy, logger *slog.Logger) *Processor {
	return &Processor{
		client: client,
		slots:  slots,
		policy: policy,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Process predicts the impact for job. Blank jobs are skipped without calling the client.
func (p *Processor) Process(ctx context.Context, job string) Result {
	job = strings.TrimSpace(job)
	if job == "" {
		return Result{Kind: Skip}
	}

	maxAttempts := p.policy.attempts()
	for attempt := 1; ; attempt++ {
		pred, err := p.attempt(ctx, job)
		if err == nil {
			return Result{Kind: Success, Job: job, Prediction: pred, Attempts: attempt}
		}

		if !p.policy.transient(err) {
			return Result{Kind: PermanentFailure, Job: job, Err: err, Attempts: attempt}
		}
		if attempt >= maxAttempts {
			return Result{
				Kind:     TransientFailure,
				Job:      job,
				Err:      fmt.Errorf("giving up after %d attempts: %w", attempt, err),
				Attempts: attempt,
			}
		}

		delay := p.policy.Delay(attempt, err)
		p.logger.Warn("rate limited, retrying",
			"job", job,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)

		if err := p.sleep(ctx, delay); err != nil {
			return Result{Kind: PermanentFailure, Job: job, Err: fmt.Errorf("retry cancelled: %w", err), Attempts: attempt}
		}
	}
}

func (p *Processor) attempt(ctx context.Context, job string) (pred model.Prediction, err error) {
	if p.slots != nil {
		if err := p.slots.Acquire(ctx); err != nil {
			return pred, err
		}
		defer p.slots.Release()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predictor panicked: %v", r)
		}
	}()
	return p.client.Predict(ctx, job)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
