package engine

import (
	"encoding/json"
	"regexp"
)

// RedactionMarker replaces every matched secret value.
const RedactionMarker = "[REDACTED]"

// Conservative patterns for values that must never reach a report or an
// outbound notification. The long-hex pattern can also hit hashes; that is
// an accepted false positive.
var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                                       // AWS access key
	regexp.MustCompile(`(?i)aws_secret_access_key.?[:=]\s*[A-Za-z0-9/+=]{16,}`),  // key=value
	regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+?\.[a-zA-Z0-9_\-]+?\.[a-zA-Z0-9_\-]+`), // JWT
	regexp.MustCompile(`[A-Fa-f0-9]{32,}`),                                       // long hex
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),                                // card-like
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                                  // SSN-like
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),         // email
}

// Redact replaces anything secret-looking in s with the redaction marker.
func Redact(s string) string {
	for _, re := range redactPatterns {
		s = re.ReplaceAllString(s, RedactionMarker)
	}
	return s
}

// RedactFinding returns a copy of f with its message, location and raw
// metadata scrubbed. Must run before the finding is persisted or
// transmitted to any external channel.
func RedactFinding(f Finding) Finding {
	f.Message = Redact(f.Message)
	f.Location = Redact(f.Location)
	if len(f.Raw) > 0 {
		f.Raw = json.RawMessage(Redact(string(f.Raw)))
	}
	return f
}

// RedactAll scrubs a whole finding slice in place-order, returning a new
// slice so the caller's input stays untouched.
func RedactAll(findings []Finding) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		out[i] = RedactFinding(f)
	}
	return out
}
