// Package jobs reads the list of job titles to classify.
package jobs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads one job title per line from path. Lines are trimmed and blank
// lines dropped; file order is preserved.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jobs file: %w", err)
	}
	defer f.Close()

	jobs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read jobs file %s: %w", path, err)
	}
	return jobs, nil
}

// Read parses newline-delimited job titles from r.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var jobs []string
	for scanner.Scan() {
		if job := strings.TrimSpace(scanner.Text()); job != "" {
			jobs = append(jobs, job)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}
