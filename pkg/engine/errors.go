package engine

import "fmt"

// ErrorKind distinguishes the ways a scanner can fail within a run.
type ErrorKind string

const (
	ErrKindExecution ErrorKind = "execution" // tool missing or unexpected exit
	ErrKindTimeout   ErrorKind = "timeout"   // per-scanner deadline exceeded
	ErrKindParse     ErrorKind = "parse"     // malformed or schema-violating output
)

// ScannerError records a failed scanner invocation or an unparseable
// payload. It is scoped to one category: policy evaluation treats it as a
// worst-case finding for that category, and it never aborts other scanners.
type ScannerError struct {
	Scanner  string    `json:"scanner"`
	Category Category  `json:"category"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

func (e *ScannerError) Error() string {
	return fmt.Sprintf("%s (%s): %s: %s", e.Scanner, e.Category, e.Kind, e.Message)
}

// PolicyConfigError means severity thresholds are missing or invalid.
// It is fatal for the run and is surfaced before any scanner is invoked.
type PolicyConfigError struct {
	Field  string
	Reason string
}

func (e *PolicyConfigError) Error() string {
	return fmt.Sprintf("policy config: %s: %s", e.Field, e.Reason)
}
