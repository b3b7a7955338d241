package notifier

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobimpact/internal/model"
)

func TestLogNotifier_Notify_zeroRuns(t *testing.T) {
	n := NewLogNotifier(discardLogger())
	if err := n.Notify("sweep-1", nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
}

func TestLogNotifier_Notify_logsEachRun(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	runs := []model.ModelRun{
		{Model: "openai/gpt-5", Provider: "openrouter", State: model.StateDone, Succeeded: 2, Files: []string{"a.json", "a.xlsx"}},
		{Model: "command-a-03-2025", Provider: "cohere", State: model.StateFailed, Err: errors.New("missing credential")},
	}
	if err := n.Notify("sweep-1", runs); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	out := buf.String()
	if got := strings.Count(out, "msg=\"model run\""); got != 2 {
		t.Errorf("expected 2 log lines, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "missing credential") {
		t.Errorf("failed run should be logged at WARN with its error:\n%s", out)
	}
	if !strings.Contains(out, "model=openai/gpt-5") {
		t.Errorf("missing model attribute:\n%s", out)
	}
}
