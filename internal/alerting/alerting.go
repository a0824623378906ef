package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/marketdash/internal/refresh"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	// MinFailuresBeforeAlert is the threshold before sending alerts
	MinFailuresBeforeAlert int
	// Timeout for HTTP requests
	Timeout time.Duration

	SendGridAPIKey string
	EmailTo        string
	EmailFrom      string
}

// WebhookEnabled reports whether a webhook target is configured.
func (c AlertConfig) WebhookEnabled() bool { return c.WebhookURL != "" }

// EmailEnabled reports whether SendGrid email alerts are configured.
func (c AlertConfig) EmailEnabled() bool {
	return c.SendGridAPIKey != "" && c.EmailTo != ""
}

// DefaultAlertConfig returns config from environment variables.
func DefaultAlertConfig() AlertConfig {
	cfg := AlertConfig{
		WebhookURL:             os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookType:            os.Getenv("ALERT_WEBHOOK_TYPE"),
		MinFailuresBeforeAlert: 1,
		Timeout:                10 * time.Second,
		SendGridAPIKey:         os.Getenv("SENDGRID_API_KEY"),
		EmailTo:                os.Getenv("ALERT_EMAIL_TO"),
		EmailFrom:              os.Getenv("ALERT_EMAIL_FROM"),
	}

	if cfg.WebhookType == "" {
		// Auto-detect from URL
		if strings.Contains(cfg.WebhookURL, "slack.com") {
			cfg.WebhookType = "slack"
		} else if strings.Contains(cfg.WebhookURL, "discord.com") {
			cfg.WebhookType = "discord"
		} else {
			cfg.WebhookType = "generic"
		}
	}
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = "marketdash@localhost"
	}

	if v := os.Getenv("ALERT_MIN_FAILURES"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.MinFailuresBeforeAlert = n
		}
	}

	return cfg
}

// EmailSender delivers a plain-text alert email.
type EmailSender interface {
	Send(ctx context.Context, subject, body string) error
}

type sendGridSender struct {
	apiKey   string
	from, to string
}

func (s sendGridSender) Send(ctx context.Context, subject, body string) error {
	from := mail.NewEmail("marketdash", s.from)
	to := mail.NewEmail("", s.to)
	message := mail.NewSingleEmail(from, subject, to, body, "<pre>"+body+"</pre>")
	resp, err := sendgrid.NewSendClient(s.apiKey).SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Alerter sends refresh run alerts to the configured webhook and email.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
	email  EmailSender
	logger *slog.Logger
}

// NewAlerter creates a new alerter instance.
func NewAlerter(cfg AlertConfig, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Alerter{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
	if cfg.EmailEnabled() {
		a.email = sendGridSender{apiKey: cfg.SendGridAPIKey, from: cfg.EmailFrom, to: cfg.EmailTo}
	}
	return a
}

// WithEmailSender replaces the email transport.
func (a *Alerter) WithEmailSender(s EmailSender) *Alerter {
	a.email = s
	return a
}

// RunAlert represents an alert about one refresh run.
type RunAlert struct {
	JobName        string
	RunID          string
	TotalCount     int
	RefreshedCount int
	SkippedCount   int
	FailedCount    int
	Duration       time.Duration
	FailedDetails  []ResourceFailure
	Timestamp      time.Time
}

// ResourceFailure contains details about a failed resource.
type ResourceFailure struct {
	Resource string `json:"resource"`
	Mode     string `json:"mode"`
	Error    string `json:"error"`
}

// FromReport summarizes a refresh report for alerting.
func FromReport(job string, rep refresh.Report) RunAlert {
	alert := RunAlert{
		JobName:        job,
		RunID:          rep.RunID,
		TotalCount:     len(rep.Outcomes),
		RefreshedCount: rep.Refreshed(),
		SkippedCount:   rep.Skipped(),
		FailedCount:    rep.Failed(),
		Duration:       rep.Finished.Sub(rep.Started),
		Timestamp:      rep.Finished,
	}
	for _, o := range rep.Failures() {
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		alert.FailedDetails = append(alert.FailedDetails, ResourceFailure{
			Resource: o.ID,
			Mode:     o.Mode.String(),
			Error:    msg,
		})
	}
	return alert
}

// SendRunAlert notifies every configured channel about failed resources.
// It returns the first delivery error after trying all channels.
func (a *Alerter) SendRunAlert(ctx context.Context, alert RunAlert) error {
	if !a.cfg.WebhookEnabled() && a.email == nil {
		a.logger.Debug("alerting: alerts disabled, skipping")
		return nil
	}

	if alert.FailedCount == 0 || alert.FailedCount < a.cfg.MinFailuresBeforeAlert {
		a.logger.Debug("alerting: failures below threshold, skipping",
			"failed", alert.FailedCount, "threshold", a.cfg.MinFailuresBeforeAlert)
		return nil
	}

	var firstErr error
	if a.cfg.WebhookEnabled() {
		if err := a.sendWebhook(ctx, alert); err != nil {
			a.logger.Error("alerting: webhook failed", "err", err)
			firstErr = err
		}
	}
	if a.email != nil {
		subject := fmt.Sprintf("[marketdash] %d/%d resources failed in %s", alert.FailedCount, alert.TotalCount, alert.JobName)
		if err := a.email.Send(ctx, subject, emailBody(alert)); err != nil {
			a.logger.Error("alerting: email failed", "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("send email: %w", err)
			}
		}
	}
	if firstErr == nil {
		a.logger.Info("alerting: sent alert", "failed", alert.FailedCount, "run_id", alert.RunID)
	}
	return firstErr
}

func (a *Alerter) sendWebhook(ctx context.Context, alert RunAlert) error {
	var payload []byte
	var err error

	switch a.cfg.WebhookType {
	case "slack":
		payload, err = buildSlackPayload(alert)
	case "discord":
		payload, err = buildDiscordPayload(alert)
	default:
		payload, err = buildGenericPayload(alert)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func failureLines(alert RunAlert, bold string) string {
	var b strings.Builder
	for _, f := range alert.FailedDetails {
		fmt.Fprintf(&b, "• %s%s%s (%s): %s\n", bold, f.Resource, bold, f.Mode, f.Error)
	}
	return b.String()
}

func emailBody(alert RunAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\nRun: %s\nTime: %s\n", alert.JobName, alert.RunID, alert.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Refreshed: %d  Skipped: %d  Failed: %d\n\n", alert.RefreshedCount, alert.SkippedCount, alert.FailedCount)
	b.WriteString(failureLines(alert, ""))
	return b.String()
}

func buildSlackPayload(alert RunAlert) ([]byte, error) {
	emoji := ":warning:"
	if alert.FailedCount == alert.TotalCount {
		emoji = ":x:"
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Refresh Alert: %s", emoji, alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%d/%d failed", alert.FailedCount, alert.TotalCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Refreshed:*\n%d", alert.RefreshedCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Failed Resources:*\n%s", failureLines(alert, "*")),
				},
			},
		},
	}

	return json.Marshal(payload)
}

func buildDiscordPayload(alert RunAlert) ([]byte, error) {
	color := 16776960 // Yellow
	if alert.FailedCount == alert.TotalCount {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       fmt.Sprintf("Refresh Alert: %s", alert.JobName),
				"description": fmt.Sprintf("%d/%d resources failed", alert.FailedCount, alert.TotalCount),
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Refreshed", "value": fmt.Sprintf("%d", alert.RefreshedCount), "inline": true},
					{"name": "Failed", "value": fmt.Sprintf("%d", alert.FailedCount), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
					{"name": "Failed Resources", "value": failureLines(alert, "**"), "inline": false},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func buildGenericPayload(alert RunAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":      "refresh_failure",
		"job_name":        alert.JobName,
		"run_id":          alert.RunID,
		"total_count":     alert.TotalCount,
		"refreshed_count": alert.RefreshedCount,
		"skipped_count":   alert.SkippedCount,
		"failed_count":    alert.FailedCount,
		"duration_ms":     alert.Duration.Milliseconds(),
		"timestamp":       alert.Timestamp.Format(time.RFC3339),
		"failed_details":  alert.FailedDetails,
	}

	return json.Marshal(payload)
}
