package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/user/secscan/pkg/engine"
)

func sampleRun() engine.ScanRun {
	findings := []engine.Finding{
		{
			Scanner:  "trivy-config",
			Category: engine.CategoryIaC,
			RuleID:   "AVD-AWS-0086",
			Location: "terraform/main.tf",
			Line:     12,
			Severity: engine.SevHigh,
			Message:  "Bucket does not block public ACLs",
		},
	}
	return engine.ScanRun{
		ID:        "run-1",
		Repo:      "test-repo",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Findings:  findings,
		CategoryVerdicts: map[engine.Category]engine.Verdict{
			engine.CategorySecrets: engine.VerdictPass,
			engine.CategoryIaC:     engine.VerdictFail,
		},
		OverallVerdict: engine.VerdictFail,
		Errors: []engine.ScannerError{
			{Scanner: "gitleaks", Category: engine.CategorySecrets, Kind: engine.ErrKindTimeout, Message: "deadline exceeded"},
		},
		Summary: engine.Summarize(findings),
	}
}

func TestWriteLatestJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{"json"})
	run := sampleRun()

	if err := w.Write(run); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LatestJSON))
	if err != nil {
		t.Fatalf("read latest report: %v", err)
	}
	var got engine.ScanRun
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("latest report is not valid JSON: %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("report round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTextFormat(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{"json", "text"})

	if err := w.Write(sampleRun()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LatestText))
	if err != nil {
		t.Fatalf("text report not written: %v", err)
	}
	text := string(data)
	for _, want := range []string{"FAIL", "AVD-AWS-0086", "terraform/main.tf:12", "gitleaks", "timeout"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}
}

func TestWriteOverwritesPreviousLatest(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	first := sampleRun()
	if err := w.Write(first); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	second := sampleRun()
	second.ID = "run-2"
	if err := w.Write(second); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LatestJSON))
	if err != nil {
		t.Fatalf("read latest report: %v", err)
	}
	var got engine.ScanRun
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "run-2" {
		t.Errorf("latest report holds %s, want run-2", got.ID)
	}
}

func TestRenderDiagnosticsIncludeErrorSection(t *testing.T) {
	// CI consumers diagnose from the artifact alone, so scanner errors
	// must be visible in the rendered report, not only in logs.
	out := Render(sampleRun())
	if !strings.Contains(out, "Scanner errors:") {
		t.Errorf("rendered report missing error section:\n%s", out)
	}
	if !strings.Contains(out, "deadline exceeded") {
		t.Errorf("rendered report missing error detail:\n%s", out)
	}
}
