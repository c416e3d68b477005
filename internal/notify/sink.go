package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"time"

	"github.com/chrissnell/plugscheduler/internal/types"
)

// SinkHealth is the observable health of a sink, exposed via the status API.
type SinkHealth string

const (
	SinkHealthy  SinkHealth = "healthy"
	SinkDegraded SinkHealth = "degraded"
	SinkFailed   SinkHealth = "failed"
)

// Sink is a delivery target for notification events (§4.9). Validate runs
// once at startup; a failing sink is either fatal (notifications.required)
// or disabled. Send is called fire-and-forget per delivered event.
type Sink interface {
	Name() string
	Validate(ctx context.Context) error
	Send(ctx context.Context, event types.NotificationEvent) error
}

// WebhookSink POSTs the event payload as JSON to a configured URL, following
// the same http.Client-with-timeout, build-request, check-response pattern
// the teacher uses for its outbound weather-upload integrations.
type WebhookSink struct {
	name    string
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewWebhookSink returns a sink that POSTs events to url.
func NewWebhookSink(name, url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{name: name, url: url, timeout: timeout, client: &http.Client{Timeout: timeout}}
}

func (w *WebhookSink) Name() string { return w.name }

func (w *WebhookSink) Validate(ctx context.Context) error {
	if w.url == "" {
		return fmt.Errorf("webhook sink %q: empty url", w.name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.url, nil)
	if err != nil {
		return fmt.Errorf("webhook sink %q: building probe request: %w", w.name, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook sink %q: connectivity probe failed: %w", w.name, err)
	}
	resp.Body.Close()
	return nil
}

func (w *WebhookSink) Send(ctx context.Context, event types.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook sink %q: marshaling event: %w", w.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook sink %q: building request: %w", w.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook sink %q: delivering event: %w", w.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sink %q: server returned status %d", w.name, resp.StatusCode)
	}
	return nil
}

// EmailConfig configures an outbound SMTP sink. There's no third-party SMTP
// client anywhere in the example corpus, so this is the one sink built on
// the standard library (net/smtp) rather than an ecosystem package.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailSink delivers events as plaintext email over SMTP.
type EmailSink struct {
	name string
	cfg  EmailConfig
}

// NewEmailSink returns a sink that sends events via SMTP.
func NewEmailSink(name string, cfg EmailConfig) *EmailSink {
	return &EmailSink{name: name, cfg: cfg}
}

func (e *EmailSink) Name() string { return e.name }

func (e *EmailSink) Validate(ctx context.Context) error {
	if e.cfg.Host == "" || len(e.cfg.To) == 0 {
		return fmt.Errorf("email sink %q: host and at least one recipient are required", e.name)
	}
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	conn, err := (&net.Dialer{Timeout: 5 * time.Second}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email sink %q: connectivity probe failed: %w", e.name, err)
	}
	return conn.Close()
}

func (e *EmailSink) Send(ctx context.Context, event types.NotificationEvent) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	subject := fmt.Sprintf("[plugscheduler] %s", event.EventType)
	body := fmt.Sprintf("Subject: %s\r\n\r\n%s\noccurred_at: %s\nsource: %s\n",
		subject, event.Message, event.OccurredAt.Format(time.RFC3339), event.Source)
	return smtp.SendMail(addr, auth, e.cfg.From, e.cfg.To, []byte(body))
}
