package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"sigil/internal/platform/config"
)

// Mailer sends outbound email on behalf of the authority.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer delivers over implicit-TLS SMTP (port 465 style). Each Send
// dials a fresh connection; verification traffic is low-volume enough that
// pooling buys nothing.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	var msg strings.Builder
	msg.WriteString("From: " + m.cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	if _, err := writer.Write([]byte(msg.String())); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return client.Quit()
}

// LogMailer stands in when SMTP is unconfigured (local development, tests).
// It logs the message instead of delivering it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.InfoContext(ctx, "mail delivery skipped, smtp not configured",
		"to", to,
		"subject", subject,
		"body", htmlBody,
	)
	return nil
}

// VerificationEmail renders the message carrying the emailed code.
func VerificationEmail(authority, sponsorName, code string, window time.Duration) (subject, body string) {
	subject = fmt.Sprintf("Your %s verification code", authority)
	body = fmt.Sprintf(
		"<p>%s asked %s to confirm this address.</p>"+
			"<p>Your verification code is <b>%s</b>.</p>"+
			"<p>Enter it within %d minutes, or the request expires.</p>",
		sponsorName, authority, code, int(window.Minutes()),
	)
	return subject, body
}

// SupportRequestEmail renders the out-of-band note asking operators to add
// a domain to the inference graph.
func SupportRequestEmail(authority, userEmail, domain string) (subject, body string) {
	subject = fmt.Sprintf("Domain support request: %s", domain)
	body = fmt.Sprintf(
		"<p>%s asked %s to support the email domain <b>%s</b>.</p>",
		userEmail, authority, domain,
	)
	return subject, body
}
