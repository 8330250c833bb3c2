// Package runner sequences one end-to-end scan: execute enabled scanners,
// normalize their output, evaluate policy, persist artifacts, alert.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/history"
	"github.com/user/secscan/pkg/logging"
	"github.com/user/secscan/pkg/notify"
	"github.com/user/secscan/pkg/report"
	"github.com/user/secscan/pkg/wrappers"
)

// ErrCancelled is returned when the whole run was cancelled; report and
// history writes are skipped so the store stays at its last good state.
var ErrCancelled = errors.New("scan run cancelled")

// Runner wires the pipeline together. Scanners may be replaced in tests.
type Runner struct {
	Config   *config.Config
	Scanners []wrappers.Scanner
	Store    *history.Store
	Writer   *report.Writer

	// now and newID are swappable for deterministic tests.
	now   func() time.Time
	newID func() string
}

func New(cfg *config.Config) *Runner {
	return &Runner{
		Config:   cfg,
		Scanners: wrappers.Enabled(cfg),
		Store:    history.NewStore(cfg.ReportsDir),
		Writer:   report.NewWriter(cfg.ReportsDir, cfg.Report.Formats),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Run performs one orchestration invocation against target and returns the
// completed, persisted ScanRun. The policy is validated before any scanner
// starts; a bad policy aborts with no side effects.
func (r *Runner) Run(ctx context.Context, target string) (engine.ScanRun, error) {
	policy, err := r.Config.Policy()
	if err != nil {
		return engine.ScanRun{}, err
	}
	if err := policy.Validate(); err != nil {
		return engine.ScanRun{}, err
	}

	findings, scanErrs := r.collect(ctx, target)

	if ctx.Err() != nil {
		return engine.ScanRun{}, ErrCancelled
	}

	engine.SortFindings(findings)
	if r.Config.Report.RedactValues {
		findings = engine.RedactAll(findings)
	}

	verdicts, overall := engine.Evaluate(findings, scanErrs, policy)
	run := engine.ScanRun{
		ID:               r.id(),
		Repo:             r.Config.Repo,
		Timestamp:        r.timestamp(),
		Findings:         findings,
		CategoryVerdicts: verdicts,
		OverallVerdict:   overall,
		Errors:           scanErrs,
		Summary:          engine.Summarize(findings),
	}

	if err := r.Writer.Write(run); err != nil {
		return run, err
	}
	if err := r.Store.Append(run); err != nil {
		return run, err
	}

	if err := notify.Dispatch(ctx, r.Config, run); err != nil {
		// Best effort only; already logged per channel.
		logging.Logger.Debugf("notification dispatch: %v", err)
	}
	return run, nil
}

// collect executes every enabled scanner with bounded parallelism and a
// per-scanner timeout, normalizing each payload as soon as it arrives.
// Failures are folded into category-scoped ScannerErrors; one broken
// scanner never aborts the others.
func (r *Runner) collect(ctx context.Context, target string) ([]engine.Finding, []engine.ScannerError) {
	var (
		mu       sync.Mutex
		findings []engine.Finding
		scanErrs []engine.ScannerError
	)

	g := &errgroup.Group{}
	g.SetLimit(r.Config.MaxConcurrency)

	for _, sc := range r.Scanners {
		sc := sc
		g.Go(func() error {
			scanCtx, cancel := context.WithTimeout(ctx, time.Duration(r.Config.ScannerTimeout))
			defer cancel()

			raw, err := sc.Run(scanCtx, target)
			if err != nil {
				kind := engine.ErrKindExecution
				if errors.Is(err, context.DeadlineExceeded) {
					kind = engine.ErrKindTimeout
				}
				if ctx.Err() != nil {
					// Whole-run cancellation, not a scanner fault.
					return nil
				}
				logging.Logger.Warnf("scanner %s failed: %v", sc.Name(), err)
				mu.Lock()
				scanErrs = append(scanErrs, engine.ScannerError{
					Scanner:  sc.Name(),
					Category: sc.Category(),
					Kind:     kind,
					Message:  err.Error(),
				})
				mu.Unlock()
				return nil
			}

			normalized, err := sc.Parse(raw)
			if err != nil {
				logging.Logger.Warnf("scanner %s output rejected: %v", sc.Name(), err)
				mu.Lock()
				scanErrs = append(scanErrs, engine.ScannerError{
					Scanner:  sc.Name(),
					Category: sc.Category(),
					Kind:     engine.ErrKindParse,
					Message:  err.Error(),
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			findings = append(findings, normalized...)
			mu.Unlock()
			return nil
		})
	}
	// Group goroutines never return errors; failures are folded above.
	_ = g.Wait()

	return findings, scanErrs
}

func (r *Runner) id() string {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.New().String()
}

func (r *Runner) timestamp() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// ExitCode maps a run result to the process exit contract: PASS and WARN
// are success, FAIL is 1.
func ExitCode(run engine.ScanRun) int {
	if run.OverallVerdict == engine.VerdictFail {
		return 1
	}
	return 0
}
