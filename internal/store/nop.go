package store

import "github.com/amishk599/jobimpact/internal/model"

// NopLedger discards everything. Used with --no-ledger and in dry runs.
type NopLedger struct{}

func NewNopLedger() *NopLedger { return &NopLedger{} }

func (NopLedger) BeginSweep(string, []string) error { return nil }
func (NopLedger) RecordState(string, model.ModelRun) error { return nil }
func (NopLedger) RecordOutcomes(string, string, []model.Outcome) error { return nil }
