package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"travelhub/internal/config"
	"travelhub/internal/settings"
)

// ErrMailNotConfigured is returned when neither the settings file nor the
// environment provide an SMTP host and sender.
var ErrMailNotConfigured = errors.New("mail is not configured")

// SettingsSource supplies the admin-editable mail settings.
type SettingsSource interface {
	Load(ctx context.Context) (*settings.Settings, error)
}

type sendFunc func(d *gomail.Dialer, m *gomail.Message) error

// EmailNotifier sends transactional mail over SMTP.
type EmailNotifier struct {
	fallback config.SMTPConfig
	settings SettingsSource
	logger   *zap.Logger
	send     sendFunc
}

// NewEmailNotifier creates a new email notifier. settings may be nil.
func NewEmailNotifier(fallback config.SMTPConfig, settings SettingsSource, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{
		fallback: fallback,
		settings: settings,
		logger:   logger,
		send: func(d *gomail.Dialer, m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

// resolve reads mail settings on every call so admin edits apply without a restart.
func (n *EmailNotifier) resolve(ctx context.Context) (settings.Mail, error) {
	if n.settings != nil {
		st, err := n.settings.Load(ctx)
		if err != nil {
			n.logger.Warn("load mail settings, using environment", zap.Error(err))
		} else if st.Mail.Configured() {
			return st.Mail, nil
		}
	}

	mail := settings.Mail{
		Host:     n.fallback.Host,
		Port:     n.fallback.Port,
		User:     n.fallback.User,
		Password: n.fallback.Pass,
		From:     n.fallback.From,
	}
	if !mail.Configured() {
		return settings.Mail{}, ErrMailNotConfigured
	}
	return mail, nil
}

// SendPasswordReset mails link to the account owner. ttl is how long the link stays valid.
func (n *EmailNotifier) SendPasswordReset(ctx context.Context, to, name, link string, ttl time.Duration) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	mail, err := n.resolve(ctx)
	if err != nil {
		return err
	}
	port := mail.Port
	if port == 0 {
		port = 587
	}

	m := gomail.NewMessage()
	m.SetHeader("From", mail.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "[TravelHub] Reset your password")
	expiry := describeTTL(ttl)
	m.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in %s and works once.\n\n%s\n", name, expiry, link))
	m.AddAlternative("text/html", resetHTML(name, link, expiry))

	d := gomail.NewDialer(mail.Host, port, mail.User, mail.Password)
	if err := n.send(d, m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("password reset email sent", zap.String("to", to))
	return nil
}

// describeTTL renders ttl as "1 hour", "30 minutes" or "1 hour 30 minutes".
func describeTTL(ttl time.Duration) string {
	ttl = ttl.Round(time.Minute)
	if ttl < time.Minute {
		return "1 minute"
	}
	hours := int(ttl / time.Hour)
	minutes := int((ttl % time.Hour) / time.Minute)

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func resetHTML(name, link, expiry string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Reset your TravelHub password</h2>
    <p>Hi %s,</p>
    <p>Use the button below to choose a new password. The link expires in %s and works once.</p>
    <p><a href="%s" style="display:inline-block;padding:12px 20px;background:#0ea5e9;color:#fff;text-decoration:none;border-radius:8px;">Reset password</a></p>
    <p style="font-size:12px;color:#6b7280;">If you did not ask for this, ignore this email.</p>
  </div>
</body>
</html>`, html.EscapeString(name), html.EscapeString(expiry), html.EscapeString(link))
}
