package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	dialer   *gomail.Dialer
	host     string
	from     string
	fromName string
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(host, port, username, password)
	d.SSL = useTLS
	d.TLSConfig = &tls.Config{ServerName: host}
	return &SMTPSender{
		dialer:   d,
		host:     host,
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *SMTPSender) SendVerificationOTP(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	m := buildMessage(s.from, s.fromName, toEmail, code, expiresAt)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func buildMessage(from, fromName, to, code string, expiresAt time.Time) *gomail.Message {
	m := gomail.NewMessage()
	if strings.TrimSpace(fromName) != "" {
		m.SetAddressHeader("From", from, fromName)
	} else {
		m.SetHeader("From", from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Verification code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your verification code is %s.\nIt expires at %s UTC.\n",
		code,
		expiresAt.UTC().Format(time.RFC3339),
	))
	m.AddAlternative("text/html", fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Verify your email</h2>
    <p>Your verification code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>The code expires in 10 minutes.</p>
  </div>
</body>
</html>`, code))
	return m
}
