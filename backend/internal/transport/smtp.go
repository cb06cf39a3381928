package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/Pack144/packman-sub000/shared/logger"
)

type SMTPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTP keeps one authenticated session open per batch.
type SMTP struct {
	cfg   SMTPConfig
	store AttachmentStore
}

func NewSMTP(cfg SMTPConfig, store AttachmentStore) *SMTP {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTP{cfg: cfg, store: store}
}

func (s *SMTP) Open(ctx context.Context) (Connection, error) {
	address := net.JoinHostPort(s.cfg.Server, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: s.cfg.Server}

	var (
		conn net.Conn
		err  error
	)
	// Port 465 = implicit TLS, otherwise STARTTLS when offered
	if s.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server", "address", address, "error", err)
		return nil, fmt.Errorf("failed to connect to SMTP server %s: %w", address, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Server)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Server)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	return &smtpConnection{client: client, files: newAttachmentCache(s.store)}, nil
}

type smtpConnection struct {
	client *smtp.Client
	files  *attachmentCache
}

func (c *smtpConnection) SendBatch(ctx context.Context, emails []*OutboundEmail) (int, error) {
	return sendEach(ctx, "smtp", emails, c.send)
}

func (c *smtpConnection) send(e *OutboundEmail) error {
	raw, err := compose(e, c.files)
	if err != nil {
		return err
	}
	if err := c.deliver(e, raw); err != nil {
		// leave the session usable for the next recipient
		if rerr := c.client.Reset(); rerr != nil {
			logger.Log.Warn("failed to reset SMTP session", "error", rerr)
		}
		return err
	}
	return nil
}

func (c *smtpConnection) deliver(e *OutboundEmail, raw []byte) error {
	if err := c.client.Mail(e.From.Address); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := c.client.Rcpt(e.To.Address); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := c.client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return nil
}

func (c *smtpConnection) Close() error {
	if err := c.client.Quit(); err != nil {
		return c.client.Close()
	}
	return nil
}
