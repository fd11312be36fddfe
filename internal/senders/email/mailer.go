package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
)

type Config struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

// Mailer delivers EMAIL notifications over SMTP.
type Mailer struct {
	addr       string
	auth       smtp.Auth
	useTLS     bool
	timeout    time.Duration
	from       string
	subjPrefix string

	log *zap.Logger
}

var _ notification.Sender = (*Mailer)(nil)

func New(cfg Config) *Mailer {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host(cfg.Addr))
	}
	return &Mailer{
		addr:       cfg.Addr,
		auth:       auth,
		useTLS:     cfg.UseTLS,
		timeout:    cfg.Timeout,
		from:       cfg.From,
		subjPrefix: cfg.SubjPrefix,
		log:        zap.L().With(zap.String("component", "sender.email")),
	}
}

func (m *Mailer) WithLogger(l *zap.Logger) *Mailer {
	if l == nil {
		return m
	}
	cp := *m
	cp.log = l.With(zap.String("component", "sender.email"))
	return &cp
}

func (m *Mailer) Send(ctx context.Context, n *notification.Notification) (notification.SendResult, error) {
	p := n.Payload.Email
	if p == nil {
		return notification.SendResult{}, fmt.Errorf("notification %s has no email payload", n.ID)
	}

	subj := strings.TrimSpace(m.subjPrefix + " " + p.Subject)
	contentType := "text/plain; charset=utf-8"
	if p.HTML {
		contentType = "text/html; charset=utf-8"
	}
	msg := []byte(
		"From: " + m.from + "\r\n" +
			"To: " + p.To + "\r\n" +
			"Subject: " + subj + "\r\n" +
			"Content-Type: " + contentType + "\r\n" +
			"\r\n" + p.Body + "\r\n")

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", m.addr),
		zap.Bool("tls", m.useTLS),
		zap.String("to", p.To),
		zap.String("notification_id", n.ID),
	)

	if m.useTLS {
		if err := m.sendTLS(p.To, msg); err != nil {
			log.Error("send failed", zap.Error(err))
			return notification.SendResult{}, err
		}
	} else {
		if err := smtp.SendMail(m.addr, m.auth, m.from, []string{p.To}, msg); err != nil {
			log.Error("sendmail failed", zap.Error(err))
			return notification.SendResult{}, err
		}
	}

	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return notification.SendResult{}, nil
}

func (m *Mailer) sendTLS(to string, msg []byte) error {
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := tls.DialWithDialer(&dialer, "tcp", m.addr, &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	c, err := smtp.NewClient(conn, host(m.addr))
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return nil
}

func host(addr string) string {
	if i := strings.Index(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}
