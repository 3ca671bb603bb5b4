package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"course-checkout-api/internal/config"

	"go.uber.org/zap"
)

// Mailer is the outbound email collaborator. Delivery failures are the
// caller's to log; they must never reverse a payment-status transition.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, subject, body string) error
}

type mailClientImpl struct {
	httpClient *http.Client
	cfg        *config.Mail
}

// NewMailer returns an HTTP-API mailer, or a logging no-op when no mail
// API is configured (local development).
func NewMailer(mailCfg *config.Mail, logger *zap.Logger) Mailer {
	if mailCfg.APIURL == "" {
		return &noopMailer{logger: logger}
	}
	return &mailClientImpl{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cfg: mailCfg,
	}
}

func (c *mailClientImpl) SendConfirmation(ctx context.Context, to, subject, body string) error {
	payload := map[string]string{
		"from":    c.cfg.From,
		"to":      to,
		"subject": subject,
		"text":    body,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewBuffer(b))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail api error %d: %s", resp.StatusCode, string(msg))
	}

	return nil
}

type noopMailer struct {
	logger *zap.Logger
}

func (m *noopMailer) SendConfirmation(_ context.Context, to, subject, _ string) error {
	m.logger.Info("mail delivery disabled, skipping",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
