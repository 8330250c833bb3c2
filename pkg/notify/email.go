package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/user/secscan/pkg/config"
	"github.com/user/secscan/pkg/engine"
)

// EmailChannel sends a plaintext summary over SMTP with STARTTLS.
// Credentials and recipients come from the environment variables named in
// the config.
type EmailChannel struct {
	Repo   string
	Config config.EmailConfig

	// sendMail overrides smtp.SendMail in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(ctx context.Context, run engine.ScanRun) error {
	user := os.Getenv(e.Config.UserEnvVar)
	pass := os.Getenv(e.Config.PassEnvVar)
	recipients := splitRecipients(os.Getenv(e.Config.RecipientsEnvVar))
	if user == "" || pass == "" || len(recipients) == 0 {
		return fmt.Errorf("email credentials or recipients not configured (%s, %s, %s)",
			e.Config.UserEnvVar, e.Config.PassEnvVar, e.Config.RecipientsEnvVar)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("[Scan] %s - %d findings (%s)", e.Repo, len(run.Findings), run.OverallVerdict)
	body := e.body(run)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", user)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n\r\n", subject)
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.Config.SMTPHost, e.Config.SMTPPort)
	auth := smtp.PlainAuth("", user, pass, e.Config.SMTPHost)

	send := e.sendMail
	if send == nil {
		send = smtp.SendMail
	}
	return send(addr, auth, user, recipients, []byte(msg.String()))
}

func (e *EmailChannel) body(run engine.ScanRun) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Security scan completed for %s.\r\n", e.Repo)
	fmt.Fprintf(&sb, "Run: %s\r\nVerdict: %s\r\nTotal findings: %d\r\n", run.ID, run.OverallVerdict, len(run.Findings))
	for _, line := range summaryLines(run) {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}
	sb.WriteString("See the latest report artifact for details.\r\n")
	return sb.String()
}

func splitRecipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
