package mailer

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"social-report/internal/config"
)

// SMTPMailer delivers report emails directly through an SMTP server.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	cc       []string
	logger   *logrus.Logger
}

func NewSMTPMailer(cfg config.EmailConfig, logger *logrus.Logger) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is not configured")
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if from == "" {
		return nil, fmt.Errorf("sender address is not configured")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, port, cfg.Username, cfg.Password),
		from:     from,
		fromName: cfg.FromName,
		cc:       cfg.CC,
		logger:   logger,
	}, nil
}

// BuildMessage assembles the MIME message for email.
func (sm *SMTPMailer) BuildMessage(email *ReportEmail) *gomail.Message {
	m := gomail.NewMessage()
	if sm.fromName != "" {
		m.SetAddressHeader("From", sm.from, sm.fromName)
	} else {
		m.SetHeader("From", sm.from)
	}
	m.SetHeader("To", email.Recipient)
	if len(sm.cc) > 0 {
		m.SetHeader("Cc", sm.cc...)
	}
	m.SetHeader("Subject", email.Subject())
	m.SetBody("text/plain", email.Body(sm.fromName))

	m.Attach(email.PDFName(), attachment(email.PDF, "application/pdf")...)
	if len(email.CSV) > 0 {
		m.Attach(email.CSVName(), attachment(email.CSV, "text/csv")...)
	}
	return m
}

func attachment(data []byte, contentType string) []gomail.FileSetting {
	return []gomail.FileSetting{
		gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
	}
}

func (sm *SMTPMailer) Send(ctx context.Context, email *ReportEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := sm.BuildMessage(email)
	done := make(chan error, 1)
	go func() {
		done <- sm.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", email.Recipient, err)
		}
	}

	sm.logger.WithFields(logrus.Fields{
		"recipient": email.Recipient,
		"client":    email.ClientName,
		"cc":        len(sm.cc),
	}).Info("Report email sent")
	return nil
}

// New picks the relay when a relay URL is configured and SMTP otherwise.
func New(cfg config.EmailConfig, logger *logrus.Logger) (Sender, error) {
	if cfg.RelayURL != "" {
		return NewRelayClient(cfg.RelayURL, 0, logger), nil
	}
	return NewSMTPMailer(cfg, logger)
}
