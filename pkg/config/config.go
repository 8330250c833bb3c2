package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/secscan/pkg/engine"
)

const DefaultPath = "secscan.yaml"

// Duration lets yaml.v3 read Go duration strings ("5m", "90s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ScanConfig enables one scanner category and sets its thresholds.
type ScanConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Image      string      `yaml:"image,omitempty"` // container only
	Thresholds *Thresholds `yaml:"severity_thresholds,omitempty"`
}

// Thresholds is the YAML form of a category's policy thresholds.
type Thresholds struct {
	FailOn []string `yaml:"fail_on"`
	WarnOn []string `yaml:"warn_on"`
}

// ReportConfig controls report output formats and value redaction.
type ReportConfig struct {
	Formats      []string `yaml:"formats"`
	RedactValues bool     `yaml:"redact_values"`
}

// SlackConfig configures webhook alerting. WebhookEnvVar names the
// environment variable holding the webhook URL, never the URL itself.
type SlackConfig struct {
	Enabled       bool     `yaml:"enabled"`
	FailOn        []string `yaml:"fail_on"`
	WebhookEnvVar string   `yaml:"webhook_env_var"`
}

// EmailConfig configures SMTP alerting. The *EnvVar fields name the
// environment variables holding credentials and recipients.
type EmailConfig struct {
	Enabled          bool     `yaml:"enabled"`
	FailOn           []string `yaml:"fail_on"`
	SMTPHost         string   `yaml:"smtp_host"`
	SMTPPort         int      `yaml:"smtp_port"`
	UserEnvVar       string   `yaml:"user_env_var"`
	PassEnvVar       string   `yaml:"pass_env_var"`
	RecipientsEnvVar string   `yaml:"recipients_env_var"`
}

type NotificationsConfig struct {
	Slack SlackConfig `yaml:"slack"`
	Email EmailConfig `yaml:"email"`
}

// Config is the full declarative configuration, loaded once per run.
type Config struct {
	Repo           string                `yaml:"repo"`
	ReportsDir     string                `yaml:"reports_dir"`
	MaxConcurrency int                   `yaml:"max_concurrency"`
	ScannerTimeout Duration              `yaml:"scanner_timeout"`
	Scans          map[string]ScanConfig `yaml:"scans"`
	Report         ReportConfig          `yaml:"report"`
	Notifications  NotificationsConfig   `yaml:"notifications"`
}

func defaultThresholds() *Thresholds {
	return &Thresholds{FailOn: []string{"CRITICAL"}, WarnOn: []string{"HIGH"}}
}

// Default returns the configuration used when no file is present:
// secrets and iac scanning on, container off, redaction on, fail on
// critical findings.
func Default() *Config {
	return &Config{
		Repo:           "unnamed-project",
		ReportsDir:     "reports",
		MaxConcurrency: 3,
		ScannerTimeout: Duration(5 * time.Minute),
		Scans: map[string]ScanConfig{
			"secrets":   {Enabled: true, Thresholds: defaultThresholds()},
			"iac":       {Enabled: true, Thresholds: defaultThresholds()},
			"container": {Enabled: false, Thresholds: defaultThresholds()},
		},
		Report: ReportConfig{Formats: []string{"json"}, RedactValues: true},
		Notifications: NotificationsConfig{
			Slack: SlackConfig{FailOn: []string{"CRITICAL"}, WebhookEnvVar: "SLACK_WEBHOOK_URL"},
			Email: EmailConfig{
				FailOn:           []string{"CRITICAL"},
				SMTPHost:         "smtp.gmail.com",
				SMTPPort:         587,
				UserEnvVar:       "SMTP_USER",
				PassEnvVar:       "SMTP_PASS",
				RecipientsEnvVar: "ALERT_RECIPIENTS",
			},
		},
	}
}

// Load reads and validates the YAML file at path. A missing file yields
// the defaults. Unknown keys are a hard error so config typos surface
// immediately instead of silently disabling a scan.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes raw YAML into a Config with defaults applied and the
// policy validated.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for name, sc := range cfg.Scans {
		if sc.Thresholds == nil {
			sc.Thresholds = defaultThresholds()
			cfg.Scans[name] = sc
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts that would make a run unsafe to start.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 1 {
		return &engine.PolicyConfigError{Field: "max_concurrency", Reason: "must be at least 1"}
	}
	if time.Duration(c.ScannerTimeout) <= 0 {
		return &engine.PolicyConfigError{Field: "scanner_timeout", Reason: "must be positive"}
	}
	if sc, ok := c.Scans["container"]; ok && sc.Enabled && sc.Image == "" {
		return &engine.PolicyConfigError{Field: "scans.container.image", Reason: "required when container scanning is enabled"}
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := severitySet(c.Notifications.Slack.FailOn, "notifications.slack.fail_on"); err != nil {
		return err
	}
	if _, err := severitySet(c.Notifications.Email.FailOn, "notifications.email.fail_on"); err != nil {
		return err
	}
	return nil
}

// Policy converts the YAML thresholds into the engine's typed policy.
// Invalid severity strings and unknown categories are PolicyConfigErrors.
func (c *Config) Policy() (engine.Policy, error) {
	p := engine.Policy{Categories: make(map[engine.Category]engine.Thresholds, len(c.Scans))}
	for name, sc := range c.Scans {
		cat, err := category(name)
		if err != nil {
			return engine.Policy{}, err
		}
		th := sc.Thresholds
		if th == nil {
			th = defaultThresholds()
		}
		failOn, err := severitySet(th.FailOn, "scans."+name+".severity_thresholds.fail_on")
		if err != nil {
			return engine.Policy{}, err
		}
		warnOn, err := severitySet(th.WarnOn, "scans."+name+".severity_thresholds.warn_on")
		if err != nil {
			return engine.Policy{}, err
		}
		p.Categories[cat] = engine.Thresholds{FailOn: failOn, WarnOn: warnOn}
	}
	return p, nil
}

// Enabled reports whether a scan category is switched on.
func (c *Config) Enabled(cat engine.Category) bool {
	return c.Scans[string(cat)].Enabled
}

func category(name string) (engine.Category, error) {
	switch engine.Category(name) {
	case engine.CategorySecrets, engine.CategoryIaC, engine.CategoryContainer:
		return engine.Category(name), nil
	}
	return "", &engine.PolicyConfigError{Field: "scans." + name, Reason: "unknown scan category"}
}

func severitySet(names []string, field string) ([]engine.Severity, error) {
	out := make([]engine.Severity, 0, len(names))
	for _, n := range names {
		sev, err := engine.ParseSeverity(n)
		if err != nil {
			return nil, &engine.PolicyConfigError{Field: field, Reason: err.Error()}
		}
		out = append(out, sev)
	}
	return out, nil
}
