package notification

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/frahmantamala/college-erp/internal"
)

// Mailer delivers transactional mail through the campus mail gateway.
// It implements auth.Notifier.
type Mailer struct {
	client      *resty.Client
	fromAddress string
	logger      *slog.Logger
}

type mailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type mailResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

func NewMailer(cfg internal.MailConfig, logger *slog.Logger) *Mailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Mailer{
		client:      client,
		fromAddress: cfg.FromAddress,
		logger:      logger,
	}
}

// Send posts a single message to the gateway. A non-2xx reply is an error so
// callers can invalidate any one-time code that rode on this mail.
func (m *Mailer) Send(to, subject, body string) error {
	req := mailRequest{
		From:    m.fromAddress,
		To:      to,
		Subject: subject,
		Body:    body,
	}

	var result mailResponse
	resp, err := m.client.R().
		SetBody(req).
		SetResult(&result).
		Post("/v1/messages")
	if err != nil {
		m.logger.Error("mail gateway request failed", "subject", subject, "error", err)
		return fmt.Errorf("mail gateway request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		m.logger.Error("mail gateway rejected message",
			"subject", subject,
			"status", resp.StatusCode())
		return fmt.Errorf("mail gateway returned status %d", resp.StatusCode())
	}

	m.logger.Info("mail dispatched",
		"subject", subject,
		"message_id", result.MessageID)
	return nil
}
