package notifier

import (
	"log/slog"

	"github.com/amishk599/jobimpact/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the sweep summary to the given logger, one line per model.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each model run via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each run with model, provider, state, counts and files.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(sweepID string, runs []model.ModelRun) error {
	for _, r := range runs {
		args := []any{
			"sweep", sweepID,
			"model", r.Model,
			"provider", r.Provider,
			"state", r.State,
			"succeeded", r.Succeeded,
			"failed", r.Failed,
		}
		if len(r.Files) > 0 {
			args = append(args, "files", r.Files)
		}
		if r.Err != nil {
			args = append(args, "error", r.Err)
		}
		if r.State == model.StateFailed {
			n.logger.Warn("model run", args...)
			continue
		}
		n.logger.Info("model run", args...)
	}
	return nil
}
