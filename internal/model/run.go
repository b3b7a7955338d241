package model

import (
	"time"
)

// RunState is the lifecycle state of one model within a sweep.
type RunState string

const (
	StatePending RunState = "pending"
	StateRunning RunState = "running"
	StateDone    RunState = "done"
	StateFailed  RunState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ModelRun is the sweep's view of one model.
type ModelRun struct {
	Model      string
	Provider   string
	State      RunState
	Succeeded  int
	Failed     int
	Files      []string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunLedger records sweep progress durably.
type RunLedger interface {
	BeginSweep(sweepID string, models []string) error
	RecordState(sweepID string, run ModelRun) error
	RecordOutcomes(sweepID, model string, outcomes []Outcome) error
}

// Notifier delivers the end-of-sweep summary.
type Notifier interface {
	Notify(sweepID string, runs []ModelRun) error
}
