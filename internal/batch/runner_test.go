package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/ratelimit"
	"github.com/amishk599/jobimpact/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, IsTransient: retry.IsTransient}
}

// stubPredictor returns a deterministic prediction per job, or the error
// registered for it.
type stubPredictor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	delay time.Duration

	current atomic.Int64
	peak    atomic.Int64
}

func (s *stubPredictor) Predict(_ context.Context, job string) (model.Prediction, error) {
	n := s.current.Add(1)
	defer s.current.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, job)
	err := s.fail[job]
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err != nil {
		return model.Prediction{}, err
	}
	return model.Prediction{
		JobTitle:    job,
		Impact:      model.ImpactAugmented,
		Skills:      []string{"communication"},
		Explanation: "stub",
	}, nil
}

func newRunner() *Runner {
	r := NewRunner(fastPolicy(), nil, discardLogger())
	r.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRun_EndToEndSkipsBlankJobs(t *testing.T) {
	client := &stubPredictor{}
	jobs := []string{"Data Entry Clerk", "", "  ", "Senior Architect"}

	run := newRunner().Run(context.Background(), "openai/gpt-5", client, ratelimit.NewLimiter("openrouter", 10), jobs)

	require.Len(t, run.Outcomes, 2)
	titles := []string{run.Outcomes[0].Job, run.Outcomes[1].Job}
	assert.ElementsMatch(t, []string{"Data Entry Clerk", "Senior Architect"}, titles)
	for _, o := range run.Outcomes {
		assert.Equal(t, model.StatusSuccess, o.Status)
		assert.Equal(t, o.Job, o.Record()["job"])
	}
	assert.Len(t, client.calls, 2, "blank jobs must never reach the client")
	assert.Equal(t, "openai/gpt-5", run.Model)
	assert.Equal(t, 2024, run.Timestamp.Year())
}

func TestRun_OneOutcomePerJobWithFailures(t *testing.T) {
	client := &stubPredictor{fail: map[string]error{
		"Pilot":   &model.ProviderError{Provider: "test", StatusCode: 400, Err: errors.New("bad request")},
		"Barista": &model.ProviderError{Provider: "test", Kind: model.KindTransient, StatusCode: 429, Err: errors.New("slow down")},
	}}
	jobs := []string{"Chef", "Pilot", "Barista", "Nurse", "Welder"}

	run := newRunner().Run(context.Background(), "m", client, ratelimit.NewLimiter("x", 2), jobs)

	require.Len(t, run.Outcomes, len(jobs))
	for i, o := range run.Outcomes {
		assert.Equal(t, jobs[i], o.Job, "outcomes keep input order")
	}
	assert.Equal(t, 3, run.Succeeded())
	assert.Equal(t, 2, run.Failed())

	failed := map[string]int{}
	for _, o := range run.Failures() {
		require.Error(t, o.Err)
		failed[o.Job] = o.Attempts
	}
	assert.Equal(t, 1, failed["Pilot"], "permanent errors are not retried")
	assert.Equal(t, 3, failed["Barista"], "rate limits exhaust the policy")
}

func TestRun_NeverExceedsConcurrencyBound(t *testing.T) {
	const limit = 3
	client := &stubPredictor{delay: 5 * time.Millisecond}
	jobs := make([]string, 30)
	for i := range jobs {
		jobs[i] = "Job " + strings.Repeat("x", i+1)
	}

	run := newRunner().Run(context.Background(), "m", client, ratelimit.NewLimiter("x", limit), jobs)

	require.Len(t, run.Outcomes, 30)
	assert.LessOrEqual(t, client.peak.Load(), int64(limit))
	assert.Greater(t, client.peak.Load(), int64(1), "jobs should overlap")
}

func TestRun_ZeroSuccessesIsNotFatal(t *testing.T) {
	client := &stubPredictor{fail: map[string]error{
		"Chef":  errors.New("invalid api key"),
		"Pilot": errors.New("invalid api key"),
	}}

	run := newRunner().Run(context.Background(), "m", client, nil, []string{"Chef", "Pilot"})

	assert.Equal(t, 0, run.Succeeded())
	assert.Equal(t, 2, run.Failed())
}

type countingReporter struct {
	mu       sync.Mutex
	total    int
	advanced int
	finished bool
}

func (c *countingReporter) Start(_ string, total int) { c.total = total }
func (c *countingReporter) Advance(model.Outcome) {
	c.mu.Lock()
	c.advanced++
	c.mu.Unlock()
}
func (c *countingReporter) Finish() { c.finished = true }

func TestRun_ReportsProgress(t *testing.T) {
	rep := &countingReporter{}
	r := NewRunner(fastPolicy(), rep, discardLogger())

	r.Run(context.Background(), "m", &stubPredictor{}, nil, []string{"Chef", "", "Pilot", "Nurse"})

	assert.Equal(t, 3, rep.total)
	assert.Equal(t, 3, rep.advanced)
	assert.True(t, rep.finished)
}
