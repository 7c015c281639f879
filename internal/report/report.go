// Package report writes the post-run audit summary: which host encoded
// which chunk and how long it took. It is pure output, written once at the
// end of a run (successful or aborted) and never read back by distrans
// itself.
package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Assignment records one chunk's outcome: the host that encoded it and how
// long the push-encode-pull round trip took.
type Assignment struct {
	Index    int    `yaml:"index"`
	Host     string `yaml:"host"`
	Duration string `yaml:"duration"`
}

// NewAssignment builds an Assignment from a raw duration, rendering it at
// millisecond precision for a readable report.
func NewAssignment(index int, host string, d time.Duration) Assignment {
	return Assignment{Index: index, Host: host, Duration: d.Round(time.Millisecond).String()}
}

// Report is the full audit record for one run.
type Report struct {
	Input       string       `yaml:"input"`
	Output      string       `yaml:"output"`
	Hosts       []string     `yaml:"hosts"`
	StartedAt   time.Time    `yaml:"started_at"`
	FinishedAt  time.Time    `yaml:"finished_at"`
	Aborted     bool         `yaml:"aborted"`
	Error       string       `yaml:"error,omitempty"`
	Assignments []Assignment `yaml:"assignments"`
}

// WriteYAML marshals r and writes it to path, creating or truncating the
// file as needed.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // audit output, not sensitive
		return fmt.Errorf("writing run report to %s: %w", path, err)
	}
	return nil
}
