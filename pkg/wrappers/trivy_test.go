package wrappers

import (
	"strings"
	"testing"

	"github.com/user/secscan/pkg/engine"
)

const trivyConfigReportJSON = `{
  "Results": [
    {
      "Target": "terraform/main.tf",
      "Misconfigurations": [
        {
          "ID": "AVD-AWS-0086",
          "Title": "S3 bucket publicly readable",
          "Description": "Bucket does not block public ACLs",
          "Severity": "HIGH",
          "PrimaryURL": "https://avd.aquasec.com/misconfig/avd-aws-0086",
          "CauseMetadata": {"StartLine": 12, "EndLine": 18}
        },
        {
          "ID": "AVD-AWS-0132",
          "Title": "Unencrypted S3 bucket",
          "Severity": "LOW",
          "CauseMetadata": {"StartLine": 4}
        }
      ]
    },
    {
      "Target": "Dockerfile",
      "Misconfigurations": []
    }
  ]
}`

func TestTrivyConfigParse(t *testing.T) {
	s := &TrivyConfigScanner{}
	findings, err := s.Parse([]byte(trivyConfigReportJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}

	f := findings[0]
	if f.RuleID != "AVD-AWS-0086" || f.Severity != engine.SevHigh {
		t.Errorf("finding = %s/%s, want AVD-AWS-0086/HIGH", f.RuleID, f.Severity)
	}
	if f.Location != "terraform/main.tf" || f.Line != 12 {
		t.Errorf("location = %s:%d", f.Location, f.Line)
	}
	if f.Category != engine.CategoryIaC {
		t.Errorf("category = %s, want iac", f.Category)
	}
	// Description preferred, Title as fallback.
	if f.Message != "Bucket does not block public ACLs" {
		t.Errorf("message = %q", f.Message)
	}
	if findings[1].Message != "Unencrypted S3 bucket" {
		t.Errorf("fallback message = %q", findings[1].Message)
	}
}

func TestTrivyConfigRejectsUnmappedSeverity(t *testing.T) {
	// An UNKNOWN or INFO level is a parse error, never silently defaulted:
	// a defaulted value could mask an upstream severity scale change.
	payload := `{"Results":[{"Target":"main.tf","Misconfigurations":[
		{"ID":"AVD-X-1","Title":"t","Severity":"UNKNOWN"}]}]}`
	s := &TrivyConfigScanner{}
	_, err := s.Parse([]byte(payload))
	if err == nil {
		t.Fatal("expected error for UNKNOWN severity")
	}
	if !strings.Contains(err.Error(), "unmapped trivy severity") {
		t.Errorf("unexpected error: %v", err)
	}
}

const trivyImageReportJSON = `{
  "Results": [
    {
      "Target": "registry.local/app:latest (debian 12)",
      "Vulnerabilities": [
        {
          "VulnerabilityID": "CVE-2024-12345",
          "PkgName": "openssl",
          "InstalledVersion": "3.0.11",
          "FixedVersion": "3.0.13",
          "Severity": "CRITICAL",
          "Title": "openssl: remote heap overflow"
        },
        {
          "VulnerabilityID": "CVE-2023-9999",
          "PkgName": "zlib",
          "InstalledVersion": "1.2.13",
          "Severity": "MEDIUM",
          "Title": "zlib: integer overflow"
        }
      ]
    }
  ]
}`

func TestTrivyImageParse(t *testing.T) {
	s := &TrivyImageScanner{Image: "registry.local/app:latest"}
	findings, err := s.Parse([]byte(trivyImageReportJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}

	f := findings[0]
	if f.RuleID != "CVE-2024-12345" || f.Severity != engine.SevCritical {
		t.Errorf("finding = %s/%s", f.RuleID, f.Severity)
	}
	if f.Location != "openssl@3.0.11" {
		t.Errorf("location = %q, want openssl@3.0.11", f.Location)
	}
	if f.Category != engine.CategoryContainer {
		t.Errorf("category = %s, want container", f.Category)
	}
}

func TestTrivyImageRejectsUnmappedSeverity(t *testing.T) {
	payload := `{"Results":[{"Target":"img","Vulnerabilities":[
		{"VulnerabilityID":"CVE-1","PkgName":"p","InstalledVersion":"1","Severity":"NEGLIGIBLE"}]}]}`
	s := &TrivyImageScanner{Image: "img"}
	if _, err := s.Parse([]byte(payload)); err == nil {
		t.Fatal("expected error for NEGLIGIBLE severity")
	}
}
