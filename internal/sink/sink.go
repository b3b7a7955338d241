// Package sink persists a model run to JSON and XLSX files.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/sheet"
)

// TimestampLayout formats the run timestamp in file names.
const TimestampLayout = "20060102_150405"

// ErrNothingToSave is returned for a run without successful outcomes.
var ErrNothingToSave = errors.New("no successful results to save")

// PersistenceError reports a file that could not be written.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Files names the artifacts written for one run.
type Files struct {
	JSON string
	XLSX string
}

// Paths returns the non-empty paths in f.
func (f Files) Paths() []string {
	var out []string
	for _, p := range []string{f.JSON, f.XLSX} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FileSink writes results under a directory.
type FileSink struct {
	dir    string
	opts   sheet.Options
	logger *slog.Logger
}

// NewFileSink creates a sink writing to dir.
func NewFileSink(dir string, logger *slog.Logger) *FileSink {
	return &FileSink{dir: dir, opts: sheet.DefaultOptions(), logger: logger}
}

// Sanitize makes a model id safe to use in a file name.
func Sanitize(modelID string) string {
	r := strings.NewReplacer(
		"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
		`"`, "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return r.Replace(strings.TrimSpace(modelID))
}

// Stem returns the file name shared by both outputs of a run.
func Stem(run model.RunResult) string {
	return Sanitize(run.Model) + "_" + run.Timestamp.Format(TimestampLayout)
}

// Save writes the successful outcomes of run. Both files must be written for
// the save to succeed; a file already written is left in place.
func (s *FileSink) Save(ctx context.Context, run model.RunResult) (Files, error) {
	successes := run.Successes()
	if len(successes) == 0 {
		return Files{}, ErrNothingToSave
	}
	if err := ctx.Err(); err != nil {
		return Files{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Files{}, &PersistenceError{Path: s.dir, Err: err}
	}

	records := make([]map[string]any, len(successes))
	for i, o := range successes {
		records[i] = o.Record()
	}

	stem := filepath.Join(s.dir, Stem(run))
	var files Files

	jsonPath := stem + ".json"
	if err := writeAtomic(jsonPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}); err != nil {
		return files, &PersistenceError{Path: jsonPath, Err: err}
	}
	files.JSON = jsonPath
	s.logger.Info("results saved", "model", run.Model, "path", jsonPath, "records", len(records))

	xlsxPath := stem + ".xlsx"
	if err := writeAtomic(xlsxPath, func(w io.Writer) error {
		f, err := sheet.Build(records, s.opts)
		if err != nil {
			return err
		}
		defer f.Close()
		return f.Write(w)
	}); err != nil {
		return files, &PersistenceError{Path: xlsxPath, Err: err}
	}
	files.XLSX = xlsxPath
	s.logger.Info("results saved", "model", run.Model, "path", xlsxPath, "records", len(records))

	return files, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
