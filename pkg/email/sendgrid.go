package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

type SendGridClient struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

func NewSendGridClient() (*SendGridClient, error) {
	cfg := config.Cfg
	if cfg.SendGridAPIKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY is required")
	}
	if cfg.EmailFromAddr == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDR is required")
	}

	return &SendGridClient{
		client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromName: cfg.EmailFromName,
		fromAddr: cfg.EmailFromAddr,
	}, nil
}

func (c *SendGridClient) Send(ctx context.Context, to, subject, plainText, htmlBody string) error {
	from := mail.NewEmail(c.fromName, c.fromAddr)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlBody)

	resp, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		logger.Logger.Error("Failed to send email",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	if resp.StatusCode >= 400 {
		logger.Logger.Error("Email API returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", resp.Body),
		)
		return &SendError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	logger.Logger.Debug("Email sent successfully",
		zap.String("subject", subject),
		zap.Int("status_code", resp.StatusCode),
	)

	return nil
}
