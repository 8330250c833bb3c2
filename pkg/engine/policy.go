package engine

// Thresholds maps severities to the verdict they trigger for one category.
// An empty FailOn or WarnOn set is an explicit opt-out: that set can never
// trigger its verdict.
type Thresholds struct {
	FailOn []Severity
	WarnOn []Severity
}

// Policy holds the configured thresholds per scan category. Immutable
// during evaluation.
type Policy struct {
	Categories map[Category]Thresholds
}

// Validate rejects thresholds that reference severities outside the closed
// enum or categories outside the closed set.
func (p Policy) Validate() error {
	for cat, th := range p.Categories {
		if _, known := map[Category]bool{CategorySecrets: true, CategoryIaC: true, CategoryContainer: true}[cat]; !known {
			return &PolicyConfigError{Field: string(cat), Reason: "unknown scan category"}
		}
		for _, sev := range th.FailOn {
			if sev.Rank() == 0 {
				return &PolicyConfigError{Field: string(cat) + ".fail_on", Reason: "invalid severity " + string(sev)}
			}
		}
		for _, sev := range th.WarnOn {
			if sev.Rank() == 0 {
				return &PolicyConfigError{Field: string(cat) + ".warn_on", Reason: "invalid severity " + string(sev)}
			}
		}
	}
	return nil
}

// Evaluate maps a run's findings and scanner errors to per-category and
// overall verdicts. It is a pure function: re-running it against archived
// findings reproduces a historical verdict exactly.
//
// A category fails iff any of its findings matches fail_on, or a scanner
// error was recorded for it (a broken scanner is a worst-case finding). It
// warns iff nothing matched fail_on but something matched warn_on. A
// category with no findings and no errors passes.
func Evaluate(findings []Finding, errors []ScannerError, policy Policy) (map[Category]Verdict, Verdict) {
	verdicts := make(map[Category]Verdict, len(policy.Categories))
	for cat := range policy.Categories {
		verdicts[cat] = VerdictPass
	}

	for _, f := range findings {
		th := policy.Categories[f.Category]
		switch {
		case matches(f.Severity, th.FailOn):
			verdicts[f.Category] = VerdictFail
		case matches(f.Severity, th.WarnOn) && verdicts[f.Category] != VerdictFail:
			verdicts[f.Category] = VerdictWarn
		}
	}

	for _, e := range errors {
		verdicts[e.Category] = VerdictFail
	}

	overall := VerdictPass
	for _, v := range verdicts {
		if v == VerdictFail {
			overall = VerdictFail
			break
		}
		if v == VerdictWarn {
			overall = VerdictWarn
		}
	}
	return verdicts, overall
}

func matches(sev Severity, set []Severity) bool {
	for _, s := range set {
		if s == sev {
			return true
		}
	}
	return false
}
