package wrappers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/logging"
)

// TrivyImageScanner runs `trivy image` against the configured container
// image. The scan target directory is ignored; the image reference comes
// from configuration.
type TrivyImageScanner struct {
	Image string
}

func (t *TrivyImageScanner) Name() string { return "trivy-image" }

func (t *TrivyImageScanner) Category() engine.Category { return engine.CategoryContainer }

func (t *TrivyImageScanner) Run(ctx context.Context, _ string) ([]byte, error) {
	if _, err := exec.LookPath("trivy"); err != nil {
		return nil, fmt.Errorf("'trivy' binary not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "trivy", "image", "-f", "json", "-q", t.Image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("trivy image failed for %s: %w: %s", t.Image, err, strings.TrimSpace(stderr.String()))
	}

	logging.Logger.Debugf("trivy image finished for %s", t.Image)
	return stdout.Bytes(), nil
}

type trivyImageReport struct {
	Results []struct {
		Target          string            `json:"Target"`
		Vulnerabilities []json.RawMessage `json:"Vulnerabilities"`
	} `json:"Results"`
}

type trivyVulnerability struct {
	VulnerabilityID  string `json:"VulnerabilityID"`
	PkgName          string `json:"PkgName"`
	InstalledVersion string `json:"InstalledVersion"`
	Severity         string `json:"Severity"`
	Title            string `json:"Title"`
}

func (t *TrivyImageScanner) Parse(raw []byte) ([]engine.Finding, error) {
	var report trivyImageReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("trivy image output: %w", err)
	}

	var findings []engine.Finding
	for _, r := range report.Results {
		for _, entry := range r.Vulnerabilities {
			var v trivyVulnerability
			if err := json.Unmarshal(entry, &v); err != nil {
				return nil, fmt.Errorf("trivy vulnerability in %s: %w", r.Target, err)
			}
			sev, err := trivySeverity(v.Severity)
			if err != nil {
				return nil, fmt.Errorf("vulnerability %s: %w", v.VulnerabilityID, err)
			}
			findings = append(findings, engine.Finding{
				Scanner:  t.Name(),
				Category: engine.CategoryContainer,
				RuleID:   v.VulnerabilityID,
				Location: fmt.Sprintf("%s@%s", v.PkgName, v.InstalledVersion),
				Severity: sev,
				Message:  v.Title,
				Raw:      entry,
			})
		}
	}
	return findings, nil
}
