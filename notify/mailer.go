// Package notify sends transactional email through Brevo or Resend.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-svc/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Email struct {
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer picks the provider named in cfg. A provider without an API key falls back
// to LogMailer.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	switch {
	case cfg.Provider == "brevo" && cfg.BrevoAPIKey != "":
		return NewBrevoMailer("https://api.brevo.com/v3", cfg.BrevoAPIKey, cfg.From, cfg.FromName)
	case cfg.Provider == "resend" && cfg.ResendAPIKey != "":
		return NewResendMailer("https://api.resend.com", cfg.ResendAPIKey, cfg.From, cfg.FromName)
	default:
		if cfg.Provider != "log" {
			logger.Warn("Mail provider has no API key, emails will only be logged", zap.String("provider", cfg.Provider))
		}
		return &LogMailer{logger: logger}
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

type BrevoMailer struct {
	baseURL    string
	apiKey     string
	from       string
	fromName   string
	httpClient *http.Client
}

func NewBrevoMailer(baseURL, apiKey, from, fromName string) *BrevoMailer {
	return &BrevoMailer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		fromName:   fromName,
		httpClient: newHTTPClient(),
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	ReplyTo     *brevoContact  `json:"replyTo,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (m *BrevoMailer) Send(ctx context.Context, email Email) error {
	body := brevoEmail{
		Sender:      brevoContact{Email: m.from, Name: m.fromName},
		Subject:     email.Subject,
		HTMLContent: email.HTML,
	}
	for _, to := range email.To {
		body.To = append(body.To, brevoContact{Email: to})
	}
	if email.ReplyTo != "" {
		body.ReplyTo = &brevoContact{Email: email.ReplyTo}
	}
	return post(ctx, m.httpClient, m.baseURL+"/smtp/email", body, map[string]string{"api-key": m.apiKey})
}

type ResendMailer struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewResendMailer(baseURL, apiKey, from, fromName string) *ResendMailer {
	sender := from
	if fromName != "" {
		sender = fmt.Sprintf("%s <%s>", fromName, from)
	}
	return &ResendMailer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       sender,
		httpClient: newHTTPClient(),
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	body := resendEmail{
		From:    m.from,
		To:      email.To,
		ReplyTo: email.ReplyTo,
		Subject: email.Subject,
		HTML:    email.HTML,
	}
	return post(ctx, m.httpClient, m.baseURL+"/emails", body, map[string]string{"Authorization": "Bearer " + m.apiKey})
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.Info("Email",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("html_bytes", len(email.HTML)),
	)
	return nil
}

func post(ctx context.Context, client *http.Client, url string, body any, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
