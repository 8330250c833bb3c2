package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/user/secscan/pkg/engine"
)

// SlackChannel posts an alert to an incoming-webhook URL. The URL is read
// from the environment variable named in the config; the config itself
// never carries the secret.
type SlackChannel struct {
	Repo          string
	WebhookEnvVar string

	// HTTPClient overrides the default client in tests.
	HTTPClient *http.Client
	// WebhookURL overrides the env lookup in tests.
	WebhookURL string
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Send(ctx context.Context, run engine.ScanRun) error {
	url := s.WebhookURL
	if url == "" {
		url = os.Getenv(s.WebhookEnvVar)
	}
	if url == "" {
		return fmt.Errorf("webhook env var %s is not set", s.WebhookEnvVar)
	}

	payload := map[string]any{
		"text": s.message(run),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func (s *SlackChannel) message(run engine.ScanRun) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Security scan alert*\n")
	fmt.Fprintf(&sb, "Project: `%s`\nRun: `%s`\nVerdict: *%s*\nTotal findings: %d\n",
		s.Repo, run.ID, run.OverallVerdict, len(run.Findings))
	if lines := summaryLines(run); len(lines) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(lines, "\n"))
	}
	return sb.String()
}
