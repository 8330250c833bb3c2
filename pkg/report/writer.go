// Package report serializes a completed scan run to durable artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/secscan/pkg/engine"
)

const (
	LatestJSON = "latest.json"
	LatestText = "latest.txt"
)

// Writer produces the "latest" report artifacts, overwritten each run.
// Every write is temp-file-then-rename so a concurrent reader never sees a
// half-written report.
type Writer struct {
	Dir     string
	Formats []string
}

func NewWriter(dir string, formats []string) *Writer {
	if len(formats) == 0 {
		formats = []string{"json"}
	}
	return &Writer{Dir: dir, Formats: formats}
}

// Write renders the run in every configured format. The JSON artifact is
// always produced; it is the contract CI consumers diagnose from.
func (w *Writer) Write(run engine.ScanRun) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := atomicWrite(filepath.Join(w.Dir, LatestJSON), data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, format := range w.Formats {
		if format == "text" {
			if err := atomicWrite(filepath.Join(w.Dir, LatestText), []byte(Render(run))); err != nil {
				return fmt.Errorf("write text report: %w", err)
			}
		}
	}
	return nil
}

// Render formats a run as the plaintext summary used for the text artifact
// and the CLI.
func Render(run engine.ScanRun) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scan %s  repo=%s  time=%s\n", run.ID, run.Repo, run.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&sb, "Overall verdict: %s\n\n", run.OverallVerdict)

	sb.WriteString("Per category:\n")
	for _, cat := range engine.Categories {
		verdict, ok := run.CategoryVerdicts[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "  %-10s %s", cat, verdict)
		if counts := run.Summary[cat]; len(counts) > 0 {
			var parts []string
			for i := len(engine.Severities) - 1; i >= 0; i-- {
				sev := engine.Severities[i]
				if n := counts[sev]; n > 0 {
					parts = append(parts, fmt.Sprintf("%s=%d", sev, n))
				}
			}
			fmt.Fprintf(&sb, "  (%s)", strings.Join(parts, " "))
		}
		sb.WriteString("\n")
	}

	if len(run.Errors) > 0 {
		sb.WriteString("\nScanner errors:\n")
		for _, e := range run.Errors {
			fmt.Fprintf(&sb, "  [%s] %s: %s: %s\n", e.Category, e.Scanner, e.Kind, e.Message)
		}
	}

	if len(run.Findings) == 0 {
		sb.WriteString("\nNo findings.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nFindings (%d):\n", len(run.Findings))
	for _, f := range run.Findings {
		fmt.Fprintf(&sb, "  [%s] %s %s", f.Severity, f.RuleID, f.Location)
		if f.Line > 0 {
			fmt.Fprintf(&sb, ":%d", f.Line)
		}
		fmt.Fprintf(&sb, " - %s\n", f.Message)
	}
	return sb.String()
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
