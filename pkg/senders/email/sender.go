// Package email provides the SMTP email sender for automation steps.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/cadencehq/cadence/pkg/protocol"
)

const defaultSMTPPort = 587

var (
	ErrMissingRecipient = errors.New("email step config has no 'to' address")
	ErrMissingSubject   = errors.New("email step config has no 'subject'")
)

// SMTPConfig holds the server settings shared by all email sends.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// SMTPConfigFromEnv reads server settings from SMTP_* environment
// variables.
func SMTPConfigFromEnv() SMTPConfig {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = defaultSMTPPort
	}

	return SMTPConfig{
		Host:      os.Getenv("SMTP_HOST"),
		Port:      port,
		Username:  os.Getenv("SMTP_USERNAME"),
		Password:  os.Getenv("SMTP_PASSWORD"),
		FromName:  os.Getenv("SMTP_FROM_NAME"),
		FromEmail: os.Getenv("SMTP_FROM_EMAIL"),
	}
}

// MessageSender abstracts gomail's DialAndSend for testing.
type MessageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers one email step over SMTP.
type Sender struct {
	smtp    SMTPConfig
	dialer  MessageSender
	to      string
	subject string
	body    string
}

// NewSender builds a sender from step configuration.
func NewSender(smtp SMTPConfig, dialer MessageSender, config map[string]any) (*Sender, error) {
	to, _ := config["to"].(string)
	if to == "" {
		return nil, ErrMissingRecipient
	}

	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, ErrMissingSubject
	}

	body, _ := config["body"].(string)

	if dialer == nil {
		dialer = gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	}

	return &Sender{
		smtp:    smtp,
		dialer:  dialer,
		to:      to,
		subject: subject,
		body:    body,
	}, nil
}

func (s *Sender) Send(ctx context.Context, request protocol.SendRequest, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("sender", "email", "to", s.to)

	message := gomail.NewMessage()
	message.SetHeader("From", fmt.Sprintf("%s <%s>", s.smtp.FromName, s.smtp.FromEmail))
	message.SetHeader("To", s.to)
	message.SetHeader("Subject", s.subject)
	message.SetBody("text/html", s.body)

	if err := s.dialer.DialAndSend(message); err != nil {
		logger.ErrorContext(ctx, "Failed to send email", "error", err)

		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent")

	return map[string]any{"to": s.to, "subject": s.subject}, nil
}
