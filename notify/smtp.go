package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authflow"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const defaultDialTimeout = 8 * time.Second

// SMTPConfig configures SMTPNotifier. Username empty disables AUTH.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPNotifier renders the HTML templates and sends them over SMTP.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(ctx context.Context, to string, msg []byte) error
}

// NewSMTPNotifier validates cfg. Port defaults to 587.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("notify: smtp host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	n := &SMTPNotifier{cfg: cfg}
	n.send = n.sendSMTP
	return n, nil
}

// SendVerificationEmail mails the account confirmation link.
func (n *SMTPNotifier) SendVerificationEmail(ctx context.Context, msg authflow.EmailMessage) error {
	return n.deliver(ctx, msg, "Email Confirmation", "verify-email.html", VerifyLink(msg))
}

// SendResetPasswordEmail mails the password reset link.
func (n *SMTPNotifier) SendResetPasswordEmail(ctx context.Context, msg authflow.EmailMessage) error {
	return n.deliver(ctx, msg, "Reset Password", "reset-password.html", ResetLink(msg))
}

func (n *SMTPNotifier) deliver(ctx context.Context, msg authflow.EmailMessage, subject, tmpl, link string) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, map[string]string{
		"Name": msg.Name,
		"Link": link,
	}); err != nil {
		return fmt.Errorf("notify: render %s: %w", tmpl, err)
	}

	from := n.cfg.From
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", n.cfg.FromName, n.cfg.From)
	}
	raw := strings.Join([]string{
		"From: " + from,
		"To: " + msg.Email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}, "\r\n")

	if err := n.send(ctx, msg.Email, []byte(raw)); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) sendSMTP(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	dialer := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return err
		}
	}
	if n.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return err
		}
	}

	if err := c.Mail(n.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
