package mail

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/fastygo/sessionguard/usecase"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

// SMTPMailer sends verification codes over SMTP.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	appName string
}

// New returns an SMTP mailer, or a mailer that only logs when no SMTP host
// is configured.
func New(cfg Config, logger *zap.Logger) usecase.Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AppName == "" {
		cfg.AppName = "sessionguard"
	}
	if cfg.Host == "" {
		return &LogMailer{logger: logger, appName: cfg.AppName}
	}
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		appName: cfg.AppName,
	}
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, mail usecase.VerificationMail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(m.from, m.appName, mail)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func subject(appName, code string) string {
	return fmt.Sprintf("Your unique %s verification code is %s", appName, code)
}

func buildMessage(from, appName string, mail usecase.VerificationMail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", mail.Email)
	msg.SetHeader("Subject", subject(appName, mail.Code))

	body := fmt.Sprintf(`
		<h2>Verify your email</h2>
		<p>Use the code below to continue signing in to %s.</p>
		<p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p>
		<p>The code expires at %s.</p>
		<p>If you did not request this code, you can ignore this email.</p>
	`, html.EscapeString(appName), html.EscapeString(mail.Code), mail.ExpiresAt.UTC().Format(time.RFC1123))
	msg.SetBody("text/html", body)
	return msg
}

// LogMailer writes codes to the log. It is meant for local development.
type LogMailer struct {
	logger  *zap.Logger
	appName string
}

func (m *LogMailer) SendVerificationCode(_ context.Context, mail usecase.VerificationMail) error {
	m.logger.Info("verification code issued",
		zap.String("email", mail.Email),
		zap.String("subject", subject(m.appName, mail.Code)),
		zap.Time("expires_at", mail.ExpiresAt),
	)
	return nil
}
