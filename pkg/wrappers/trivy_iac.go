package wrappers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/logging"
)

// TrivyConfigScanner runs `trivy config` to detect IaC misconfigurations
// in Terraform, Dockerfiles, Kubernetes manifests and the like.
type TrivyConfigScanner struct{}

func (t *TrivyConfigScanner) Name() string { return "trivy-config" }

func (t *TrivyConfigScanner) Category() engine.Category { return engine.CategoryIaC }

func (t *TrivyConfigScanner) Run(ctx context.Context, target string) ([]byte, error) {
	if _, err := exec.LookPath("trivy"); err != nil {
		return nil, fmt.Errorf("'trivy' binary not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "trivy", "config", "-f", "json", "-q", target)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("trivy config failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	logging.Logger.Debugf("trivy config finished for %s", target)
	return stdout.Bytes(), nil
}

// trivyConfigReport covers the misconfiguration slice of trivy's JSON
// output; unknown fields are tolerated.
type trivyConfigReport struct {
	Results []struct {
		Target            string            `json:"Target"`
		Misconfigurations []json.RawMessage `json:"Misconfigurations"`
	} `json:"Results"`
}

type trivyMisconfiguration struct {
	ID            string `json:"ID"`
	Title         string `json:"Title"`
	Description   string `json:"Description"`
	Severity      string `json:"Severity"`
	CauseMetadata struct {
		StartLine int `json:"StartLine"`
	} `json:"CauseMetadata"`
}

func (t *TrivyConfigScanner) Parse(raw []byte) ([]engine.Finding, error) {
	var report trivyConfigReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("trivy config output: %w", err)
	}

	var findings []engine.Finding
	for _, r := range report.Results {
		target := filepath.ToSlash(r.Target)
		for _, entry := range r.Misconfigurations {
			var m trivyMisconfiguration
			if err := json.Unmarshal(entry, &m); err != nil {
				return nil, fmt.Errorf("trivy misconfiguration in %s: %w", target, err)
			}
			sev, err := trivySeverity(m.Severity)
			if err != nil {
				return nil, fmt.Errorf("trivy rule %s: %w", m.ID, err)
			}
			msg := m.Description
			if msg == "" {
				msg = m.Title
			}
			findings = append(findings, engine.Finding{
				Scanner:  t.Name(),
				Category: engine.CategoryIaC,
				RuleID:   m.ID,
				Location: target,
				Line:     m.CauseMetadata.StartLine,
				Severity: sev,
				Message:  msg,
				Raw:      entry,
			})
		}
	}
	return findings, nil
}

// trivySeverity is the fixed lookup from trivy's severity strings into the
// closed enum. Anything else (UNKNOWN, INFO, a future level) is a parse
// error rather than a silent default, so an upstream scale change cannot
// mask real severities.
func trivySeverity(s string) (engine.Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return engine.SevCritical, nil
	case "HIGH":
		return engine.SevHigh, nil
	case "MEDIUM":
		return engine.SevMedium, nil
	case "LOW":
		return engine.SevLow, nil
	}
	return "", fmt.Errorf("unmapped trivy severity %q", s)
}
