package wrappers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/logging"
)

// GitleaksScanner runs gitleaks against a source tree to find hardcoded
// secrets.
type GitleaksScanner struct{}

func (g *GitleaksScanner) Name() string { return "gitleaks" }

func (g *GitleaksScanner) Category() engine.Category { return engine.CategorySecrets }

// Run executes `gitleaks detect` with a JSON report file and returns the
// report bytes. Gitleaks exits 1 when leaks are found; that is a normal
// result, not a failure.
func (g *GitleaksScanner) Run(ctx context.Context, target string) ([]byte, error) {
	if _, err := exec.LookPath("gitleaks"); err != nil {
		return nil, fmt.Errorf("'gitleaks' binary not found: %w", err)
	}

	reportFile, err := os.CreateTemp("", "gitleaks-report-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating temp report: %w", err)
	}
	reportPath := reportFile.Name()
	reportFile.Close()
	defer os.Remove(reportPath)

	cmd := exec.CommandContext(ctx, "gitleaks", "detect",
		"--source", target,
		"--report-format", "json",
		"--report-path", reportPath,
		"--no-banner")
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		leaksFound := errors.As(err, &exitErr) && exitErr.ExitCode() == 1
		if !leaksFound {
			return nil, fmt.Errorf("gitleaks failed: %w: %s", err, strings.TrimSpace(string(output)))
		}
	}

	logging.Logger.Debugf("gitleaks finished for %s", target)
	return os.ReadFile(reportPath)
}

// gitleaksFinding is the subset of the gitleaks JSON report we depend on;
// additional fields are tolerated and ignored.
type gitleaksFinding struct {
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	RuleID      string `json:"RuleID"`
	Secret      string `json:"Secret"`
}

// Parse normalizes a gitleaks JSON report. An empty payload means no
// leaks. Severity is derived from the rule id since gitleaks reports none:
// rules naming key material are CRITICAL, generic credential rules HIGH,
// everything else MEDIUM.
func (g *GitleaksScanner) Parse(raw []byte) ([]engine.Finding, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("gitleaks report is not a JSON array: %w", err)
	}

	var findings []engine.Finding
	for i, entry := range entries {
		var gl gitleaksFinding
		if err := json.Unmarshal(entry, &gl); err != nil {
			return nil, fmt.Errorf("gitleaks finding %d: %w", i, err)
		}
		findings = append(findings, engine.Finding{
			Scanner:  g.Name(),
			Category: engine.CategorySecrets,
			RuleID:   gl.RuleID,
			Location: gl.File,
			Line:     gl.StartLine,
			Severity: gitleaksRuleSeverity(gl.RuleID),
			Message:  fmt.Sprintf("%s (secret: %s)", gl.Description, gl.Secret),
			Raw:      entry,
		})
	}
	return findings, nil
}

var (
	criticalRulePatterns = []string{"aws", "api_key", "api-key", "private_key", "private-key", "password", "token"}
	highRulePatterns     = []string{"secret", "credential", "auth"}
)

// gitleaksRuleSeverity is the fixed severity lookup for gitleaks. Rules
// outside both pattern lists are MEDIUM, matching the tool's own triage
// guidance.
func gitleaksRuleSeverity(ruleID string) engine.Severity {
	id := strings.ToLower(ruleID)
	for _, p := range criticalRulePatterns {
		if strings.Contains(id, p) {
			return engine.SevCritical
		}
	}
	for _, p := range highRulePatterns {
		if strings.Contains(id, p) {
			return engine.SevHigh
		}
	}
	return engine.SevMedium
}
