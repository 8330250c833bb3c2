package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Severity is the normalized severity scale shared by all scanners.
type Severity string

const (
	SevLow      Severity = "LOW"
	SevMedium   Severity = "MEDIUM"
	SevHigh     Severity = "HIGH"
	SevCritical Severity = "CRITICAL"
)

// Severities lists all valid levels in ascending order.
var Severities = []Severity{SevLow, SevMedium, SevHigh, SevCritical}

var severityRank = map[Severity]int{
	SevLow:      1,
	SevMedium:   2,
	SevHigh:     3,
	SevCritical: 4,
}

// ParseSeverity validates a severity string against the closed enum.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if _, ok := severityRank[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q (want LOW, MEDIUM, HIGH or CRITICAL)", s)
	}
	return sev, nil
}

// Rank returns the ordinal of a severity, 0 for an invalid one.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Category identifies which scan a finding or error belongs to.
type Category string

const (
	CategorySecrets   Category = "secrets"
	CategoryIaC       Category = "iac"
	CategoryContainer Category = "container"
)

// Categories lists all scan categories in report order.
var Categories = []Category{CategorySecrets, CategoryIaC, CategoryContainer}

// Finding is a single normalized issue reported by one scanner.
// It is immutable once produced by a wrapper's parser.
type Finding struct {
	Scanner  string          `json:"scanner"`
	Category Category        `json:"category"`
	RuleID   string          `json:"rule_id"`
	Location string          `json:"location"`
	Line     int             `json:"line,omitempty"`
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Verdict is the outcome of policy evaluation, per category and overall.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// ScanRun is the record of one end-to-end orchestration invocation.
// It is never mutated after the run completes.
type ScanRun struct {
	ID               string                        `json:"id"`
	Repo             string                        `json:"repo"`
	Timestamp        time.Time                     `json:"timestamp"`
	Findings         []Finding                     `json:"findings"`
	CategoryVerdicts map[Category]Verdict          `json:"category_verdicts"`
	OverallVerdict   Verdict                       `json:"overall_verdict"`
	Errors           []ScannerError                `json:"errors,omitempty"`
	Summary          map[Category]map[Severity]int `json:"summary"`
}

// Summarize computes per-category, per-severity finding counts.
func Summarize(findings []Finding) map[Category]map[Severity]int {
	out := make(map[Category]map[Severity]int)
	for _, f := range findings {
		if out[f.Category] == nil {
			out[f.Category] = make(map[Severity]int)
		}
		out[f.Category][f.Severity]++
	}
	return out
}

// SortFindings orders findings deterministically so identical raw payloads
// always yield identical artifacts.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
}
