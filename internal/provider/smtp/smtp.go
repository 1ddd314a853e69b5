// Package smtp implements a Provider that submits messages to a mail server
// over authenticated SMTP.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
)

// Security selects how the connection is protected.
type Security int

const (
	// SecurityNone sends everything in clear text.
	SecurityNone Security = iota
	// SecurityStartTLS upgrades a plain connection with STARTTLS.
	SecurityStartTLS
	// SecurityImplicitTLS performs the TLS handshake on connect.
	SecurityImplicitTLS
)

// Config holds the submission endpoint and credentials.
type Config struct {
	Host     string
	Port     int
	Security Security

	// TLSConfig is used for both STARTTLS and implicit TLS. When nil, the
	// system roots are used with Host as the server name.
	TLSConfig *tls.Config

	// Username and Password authenticate the session. Authentication is
	// skipped when Username is empty.
	Username string
	Password string
	// Mechanism is "plain" (default) or "login".
	Mechanism string

	// SenderName is the display name placed in the From header.
	SenderName string

	// Timeout bounds the whole submission.
	Timeout time.Duration
}

// Provider submits one message per Send over a fresh connection.
type Provider struct {
	cfg Config
}

// New creates a new SMTP Provider.
func New(cfg Config) *Provider {
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &Provider{cfg: cfg}
}

// Send builds a text/plain message and submits it. It makes exactly one
// attempt; a message without a recipient is rejected before dialing.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	to := msg.Recipients()
	if len(to) == 0 {
		return provider.ErrNoRecipient
	}

	raw, err := p.buildMessage(msg, to)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	c, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp connect to %s failed: %w", p.addr(), err)
	}
	defer c.Close()

	if p.cfg.Username != "" {
		if err := c.Auth(p.saslClient()); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	if err := c.SendMail(msg.From, to, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp submission failed: %w", err)
	}

	if err := c.Quit(); err != nil {
		slog.Debug("smtp quit failed after successful submission", "error", err)
	}

	slog.Info("message submitted", "provider", "smtp", "server", p.addr(), "recipients", len(to))
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

func (p *Provider) addr() string {
	return net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
}

// dial connects with the configured security. The context deadline is
// applied to the connection, since SMTP commands take no context.
func (p *Provider) dial(ctx context.Context) (*smtp.Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if p.cfg.Security == SecurityImplicitTLS {
		d := &tls.Dialer{Config: p.cfg.TLSConfig}
		conn, err = d.DialContext(ctx, "tcp", p.addr())
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", p.addr())
	}
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if p.cfg.Security == SecurityStartTLS {
		c, err := smtp.NewClientStartTLS(conn, p.cfg.TLSConfig)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return c, nil
	}
	return smtp.NewClient(conn), nil
}

func (p *Provider) saslClient() sasl.Client {
	if strings.EqualFold(p.cfg.Mechanism, "login") {
		return sasl.NewLoginClient(p.cfg.Username, p.cfg.Password)
	}
	return sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)
}

// buildMessage renders the RFC 5322 message with a quoted-printable UTF-8
// body.
func (p *Provider) buildMessage(msg *email.Email, to []string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: p.cfg.SenderName, Address: msg.From}})

	rcpts := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		rcpts = append(rcpts, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", rcpts)
	h.SetSubject(msg.Subject)
	h.SetMessageID(messageID(msg))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, msg.TextBody); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// messageID returns the message's own ID without angle brackets, or a new
// one in the sender's domain.
func messageID(msg *email.Email) string {
	if id := strings.Trim(msg.MessageID, "<> "); id != "" {
		return id
	}
	domain := "localhost"
	if _, d, ok := strings.Cut(msg.From, "@"); ok && d != "" {
		domain = d
	}
	return uuid.NewString() + "@" + domain
}
