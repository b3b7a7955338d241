// Package progress reports how far a batch has advanced.
package progress

import (
	"log/slog"
	"sync"

	"github.com/amishk599/jobimpact/internal/model"
)

// Reporter receives batch progress. Advance may be called concurrently.
type Reporter interface {
	Start(modelID string, total int)
	Advance(outcome model.Outcome)
	Finish()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(string, int)     {}
func (Nop) Advance(model.Outcome) {}
func (Nop) Finish()               {}

// LogReporter logs a line each time another tenth of the batch completes.
type LogReporter struct {
	logger *slog.Logger

	mu       sync.Mutex
	modelID  string
	total    int
	done     int
	failed   int
	nextMark int
}

// NewLogReporter returns a reporter writing to logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Start(modelID string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelID, r.total, r.done, r.failed = modelID, total, 0, 0
	r.nextMark = step(total)
}

func (r *LogReporter) Advance(o model.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	if o.Status == model.StatusFailure {
		r.failed++
	}
	if r.done >= r.nextMark && r.done < r.total {
		r.logger.Info("batch progress", "model", r.modelID, "done", r.done, "total", r.total, "failed", r.failed)
		r.nextMark += step(r.total)
	}
}

func (r *LogReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug("batch finished", "model", r.modelID, "done", r.done, "total", r.total, "failed", r.failed)
}

func step(total int) int {
	s := total / 10
	if s < 1 {
		return 1
	}
	return s
}
