// Package notify dispatches best-effort alerts for completed scan runs.
package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
	"github.com/user/secscan/pkg/logging"
)

// DeliveryError is a per-channel delivery failure. It is logged and
// swallowed: it never alters a run's verdict or blocks other channels.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Channel delivers one alert for one run.
type Channel interface {
	Name() string
	Send(ctx context.Context, run engine.ScanRun) error
}

// Channels builds the enabled channels whose fail_on set intersects the
// run's finding severities. Each selected channel receives exactly one
// alert per run.
func Channels(cfg *config.Config, run engine.ScanRun) []Channel {
	var out []Channel
	slack := cfg.Notifications.Slack
	if slack.Enabled && severitiesIntersect(slack.FailOn, run) {
		out = append(out, &SlackChannel{Repo: cfg.Repo, WebhookEnvVar: slack.WebhookEnvVar})
	}
	email := cfg.Notifications.Email
	if email.Enabled && severitiesIntersect(email.FailOn, run) {
		out = append(out, &EmailChannel{Repo: cfg.Repo, Config: email})
	}
	return out
}

// Dispatch fans the alert out to all selected channels concurrently.
// Channels are independent; every failure is logged and folded into the
// returned error, which callers treat as diagnostic only.
func Dispatch(ctx context.Context, cfg *config.Config, run engine.ScanRun) error {
	channels := Channels(cfg, run)
	if len(channels) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, ch := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, run); err != nil {
				derr := &DeliveryError{Channel: ch.Name(), Err: err}
				logging.Logger.Warnf("%v", derr)
				mu.Lock()
				errs = multierr.Append(errs, derr)
				mu.Unlock()
				return
			}
			logging.Logger.Infof("alert sent via %s for run %s", ch.Name(), run.ID)
		}(ch)
	}
	wg.Wait()
	return errs
}

func severitiesIntersect(failOn []string, run engine.ScanRun) bool {
	for _, f := range run.Findings {
		for _, s := range failOn {
			if engine.Severity(s) == f.Severity {
				return true
			}
		}
	}
	return false
}

// summaryLines renders per-category, per-severity counts for alert bodies.
func summaryLines(run engine.ScanRun) []string {
	var lines []string
	for _, cat := range engine.Categories {
		counts := run.Summary[cat]
		if len(counts) == 0 {
			continue
		}
		line := fmt.Sprintf("%s:", cat)
		for i := len(engine.Severities) - 1; i >= 0; i-- {
			sev := engine.Severities[i]
			if n := counts[sev]; n > 0 {
				line += fmt.Sprintf(" %s=%d", sev, n)
			}
		}
		lines = append(lines, line)
	}
	return lines
}
