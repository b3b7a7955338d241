package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobimpact/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockPredictor calls fn on each invocation, tracking call count.
type mockPredictor struct {
	mu    sync.Mutex
	calls int
	fn    func(attempt int) (model.Prediction, error)
}

func (m *mockPredictor) Predict(_ context.Context, _ string) (model.Prediction, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()
	return m.fn(n)
}

func rateLimited() error {
	return &model.ProviderError{Provider: "test", Kind: model.KindTransient, StatusCode: 429, Err: errors.New("too many requests")}
}

func testPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, IsTransient: IsTransient}
}

// newTestProcessor records backoff waits instead of sleeping.
func newTestProcessor(client model.Predictor, slots Slots, policy Policy) (*Processor, *[]time.Duration) {
	var waits []time.Duration
	p := NewProcessor(client, slots, policy, discardLogger())
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func TestProcess_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		return model.Prediction{JobTitle: "Nurse", Impact: model.ImpactAugmented}, nil
	}}
	p, _ := newTestProcessor(mock, nil, testPolicy(5))

	res := p.Process(context.Background(), "  Nurse ")
	if res.Kind != Success {
		t.Fatalf("Kind = %v, want success (err %v)", res.Kind, res.Err)
	}
	if res.Job != "Nurse" {
		t.Errorf("Job = %q, want trimmed", res.Job)
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
}

func TestProcess_BlankJobSkipsClient(t *testing.T) {
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		t.Fatal("client must not be called for blank job")
		return model.Prediction{}, nil
	}}
	p, _ := newTestProcessor(mock, nil, testPolicy(5))

	for _, job := range []string{"", "   ", "\t\n"} {
		res := p.Process(context.Background(), job)
		if res.Kind != Skip {
			t.Errorf("Process(%q) Kind = %v, want skip", job, res.Kind)
		}
		if _, ok := res.Outcome(); ok {
			t.Errorf("Process(%q) produced an outcome", job)
		}
	}
}

func TestProcess_RecoversAfterKRateLimits(t *testing.T) {
	for _, k := range []int{1, 2, 4} {
		mock := &mockPredictor{fn: func(attempt int) (model.Prediction, error) {
			if attempt <= k {
				return model.Prediction{}, rateLimited()
			}
			return model.Prediction{JobTitle: "Clerk", Impact: model.ImpactAutomated}, nil
		}}
		p, waits := newTestProcessor(mock, nil, testPolicy(5))

		res := p.Process(context.Background(), "Clerk")
		if res.Kind != Success {
			t.Fatalf("k=%d: Kind = %v, want success", k, res.Kind)
		}
		if mock.calls != k+1 || res.Attempts != k+1 {
			t.Errorf("k=%d: calls = %d, attempts = %d, want %d", k, mock.calls, res.Attempts, k+1)
		}
		if len(*waits) != k {
			t.Errorf("k=%d: waits = %d, want %d", k, len(*waits), k)
		}
	}
}

func TestProcess_ExhaustsMaxAttempts(t *testing.T) {
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		return model.Prediction{}, rateLimited()
	}}
	p, waits := newTestProcessor(mock, nil, testPolicy(5))

	res := p.Process(context.Background(), "Clerk")
	if res.Kind != TransientFailure {
		t.Fatalf("Kind = %v, want transient_failure", res.Kind)
	}
	if mock.calls != 5 {
		t.Errorf("calls = %d, want 5", mock.calls)
	}
	if len(*waits) != 4 {
		t.Errorf("waits = %d, want 4 (no wait after last attempt)", len(*waits))
	}
	var perr *model.ProviderError
	if !errors.As(res.Err, &perr) {
		t.Errorf("final error should wrap the provider error, got %v", res.Err)
	}
	out, ok := res.Outcome()
	if !ok || out.Status != model.StatusFailure || out.Job != "Clerk" {
		t.Errorf("Outcome = %+v, %v", out, ok)
	}
}

func TestProcess_PermanentErrorNotRetried(t *testing.T) {
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		return model.Prediction{}, &model.ProviderError{Provider: "test", StatusCode: 401, Err: errors.New("invalid api key")}
	}}
	p, waits := newTestProcessor(mock, nil, testPolicy(5))

	res := p.Process(context.Background(), "Clerk")
	if res.Kind != PermanentFailure {
		t.Fatalf("Kind = %v, want permanent_failure", res.Kind)
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
	if len(*waits) != 0 {
		t.Errorf("waits = %d, want 0", len(*waits))
	}
}

func TestProcess_PanicBecomesFailure(t *testing.T) {
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		panic("nil map")
	}}
	p, _ := newTestProcessor(mock, nil, testPolicy(3))

	res := p.Process(context.Background(), "Clerk")
	if res.Kind != PermanentFailure {
		t.Fatalf("Kind = %v, want permanent_failure", res.Kind)
	}
}

func TestProcess_CancelledDuringBackoff(t *testing.T) {
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		return model.Prediction{}, rateLimited()
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(mock, nil, Policy{MaxAttempts: 3, BaseDelay: time.Second, IsTransient: IsTransient}, discardLogger())
	res := p.Process(ctx, "Clerk")
	if res.Kind == Success {
		t.Fatal("expected failure after cancellation")
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
}

// countingSlots records how many slots are held at once and whether any are
// held while the processor waits.
type countingSlots struct {
	held, acquired int
}

func (s *countingSlots) Acquire(context.Context) error { s.held++; s.acquired++; return nil }
func (s *countingSlots) Release()                      { s.held-- }

func TestProcess_ReleasesSlotBeforeBackoff(t *testing.T) {
	slots := &countingSlots{}
	mock := &mockPredictor{fn: func(attempt int) (model.Prediction, error) {
		if attempt < 3 {
			return model.Prediction{}, rateLimited()
		}
		return model.Prediction{JobTitle: "Clerk", Impact: model.ImpactAutomated}, nil
	}}
	p := NewProcessor(mock, slots, testPolicy(5), discardLogger())
	p.sleep = func(context.Context, time.Duration) error {
		if slots.held != 0 {
			t.Errorf("slot held during backoff: %d", slots.held)
		}
		return nil
	}

	if res := p.Process(context.Background(), "Clerk"); res.Kind != Success {
		t.Fatalf("Kind = %v, want success", res.Kind)
	}
	if slots.acquired != 3 {
		t.Errorf("acquired = %d, want one slot per attempt (3)", slots.acquired)
	}
	if slots.held != 0 {
		t.Errorf("held = %d after Process, want 0", slots.held)
	}
}

func TestProcess_PanicReleasesSlot(t *testing.T) {
	slots := &countingSlots{}
	mock := &mockPredictor{fn: func(int) (model.Prediction, error) {
		panic("provider exploded")
	}}
	p, _ := newTestProcessor(mock, slots, testPolicy(3))

	if res := p.Process(context.Background(), "Clerk"); res.Kind != PermanentFailure {
		t.Fatalf("Kind = %v, want permanent_failure", res.Kind)
	}
	if slots.held != 0 {
		t.Errorf("slots held after panic = %d, want 0", slots.held)
	}
}
