package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/smtptest"
	certs "github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/tls"
)

const (
	testUser = "student@uic.edu"
	testPass = "app-password"
)

func testDraft() email.Draft {
	return email.Draft{
		To:      "prof@uic.edu",
		Subject: "Résumé review",
		Body:    "Dear Professor,\n\nCould you review my résumé?\n\nSincerely,\nBhagyesh",
	}
}

// tlsPair returns a server config and a client config that trusts it.
func tlsPair(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()
	cert, err := certs.GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert: %v", err)
	}
	server := &tls.Config{Certificates: []tls.Certificate{*cert}}
	client, err := certs.ClientConfig(certs.ClientOptions{ServerName: "127.0.0.1", RootCAs: certs.CertPool(cert)})
	if err != nil {
		t.Fatalf("ClientConfig: %v", err)
	}
	return server, client
}

func startServer(t *testing.T, opts smtptest.Options) *smtptest.Server {
	t.Helper()
	s, err := smtptest.Start(opts)
	if err != nil {
		t.Fatalf("smtptest.Start: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSend_ImplicitTLSPlainAuth(t *testing.T) {
	t.Parallel()

	serverTLS, clientTLS := tlsPair(t)
	s := startServer(t, smtptest.Options{Username: testUser, Password: testPass, TLSConfig: serverTLS, ImplicitTLS: true})

	p := New(Config{
		Host:       s.Host(),
		Port:       s.Port(),
		Security:   SecurityImplicitTLS,
		TLSConfig:  clientTLS,
		Username:   testUser,
		Password:   testPass,
		SenderName: "Bhagyesh",
		Timeout:    5 * time.Second,
	})

	if err := p.Send(context.Background(), testDraft().Message(testUser)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("messages: got %d, want 1", len(msgs))
	}
	m := msgs[0]
	if !m.TLS {
		t.Error("message was not submitted over TLS")
	}
	if m.User != testUser {
		t.Errorf("authenticated user: got %q", m.User)
	}
	if m.From != testUser || len(m.To) != 1 || m.To[0] != "prof@uic.edu" {
		t.Errorf("envelope: from %q to %v", m.From, m.To)
	}

	if m.Parsed == nil {
		t.Fatal("server could not parse the submitted message")
	}
	d := testDraft()
	if m.Parsed.Subject != d.Subject {
		t.Errorf("Subject: got %q, want %q", m.Parsed.Subject, d.Subject)
	}
	if m.Parsed.TextBody != d.Body {
		t.Errorf("TextBody: got %q, want %q", m.Parsed.TextBody, d.Body)
	}
	if m.Parsed.From != testUser {
		t.Errorf("From header: got %q", m.Parsed.From)
	}
	if !strings.HasSuffix(m.Parsed.MessageID, "@uic.edu>") {
		t.Errorf("Message-Id: got %q, want one in the sender's domain", m.Parsed.MessageID)
	}
	raw := string(m.Raw)
	for _, want := range []string{"Bhagyesh", "text/plain", "utf-8", "Date: "} {
		if !strings.Contains(raw, want) {
			t.Errorf("raw message missing %q", want)
		}
	}
}

func TestSend_StartTLSLoginAuth(t *testing.T) {
	t.Parallel()

	serverTLS, clientTLS := tlsPair(t)
	s := startServer(t, smtptest.Options{Username: testUser, Password: testPass, TLSConfig: serverTLS})

	p := New(Config{
		Host:      s.Host(),
		Port:      s.Port(),
		Security:  SecurityStartTLS,
		TLSConfig: clientTLS,
		Username:  testUser,
		Password:  testPass,
		Mechanism: "login",
		Timeout:   5 * time.Second,
	})

	if err := p.Send(context.Background(), testDraft().Message(testUser)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("messages: got %d, want 1", len(msgs))
	}
	if !msgs[0].TLS {
		t.Error("message was not submitted after STARTTLS")
	}
	if msgs[0].User != testUser {
		t.Errorf("authenticated user: got %q", msgs[0].User)
	}
}

func TestSend_NoAuthPlainConnection(t *testing.T) {
	t.Parallel()

	s := startServer(t, smtptest.Options{})
	p := New(Config{Host: s.Host(), Port: s.Port(), Security: SecurityNone, Timeout: 5 * time.Second})

	if err := p.Send(context.Background(), testDraft().Message(testUser)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if n := len(s.Messages()); n != 1 {
		t.Errorf("messages: got %d, want 1", n)
	}
}

func TestSend_NoRecipientRejectedBeforeDial(t *testing.T) {
	t.Parallel()

	s := startServer(t, smtptest.Options{})
	p := New(Config{Host: s.Host(), Port: s.Port(), Timeout: 5 * time.Second})

	d := testDraft()
	d.To = ""
	err := p.Send(context.Background(), d.Message(testUser))
	if !errors.Is(err, provider.ErrNoRecipient) {
		t.Fatalf("Send() error = %v, want ErrNoRecipient", err)
	}
	if n := s.Sessions(); n != 0 {
		t.Errorf("sessions: got %d, want 0", n)
	}
}

func TestSend_RejectedIsSingleAttempt(t *testing.T) {
	t.Parallel()

	s := startServer(t, smtptest.Options{DataReply: "554 5.7.1 Message rejected"})
	p := New(Config{Host: s.Host(), Port: s.Port(), Timeout: 5 * time.Second})

	err := p.Send(context.Background(), testDraft().Message(testUser))
	if err == nil {
		t.Fatal("Send() expected error for rejected message")
	}
	if !strings.Contains(err.Error(), "submission failed") {
		t.Errorf("error %q should name the failed stage", err)
	}
	if n := s.Sessions(); n != 1 {
		t.Errorf("sessions: got %d, want exactly 1", n)
	}
	if n := len(s.Messages()); n != 0 {
		t.Errorf("messages: got %d, want 0", n)
	}
}

func TestSend_WrongPassword(t *testing.T) {
	t.Parallel()

	s := startServer(t, smtptest.Options{Username: testUser, Password: testPass})
	p := New(Config{Host: s.Host(), Port: s.Port(), Username: testUser, Password: "wrong", Timeout: 5 * time.Second})

	err := p.Send(context.Background(), testDraft().Message(testUser))
	if err == nil || !strings.Contains(err.Error(), "authentication failed") {
		t.Fatalf("Send() error = %v, want authentication failure", err)
	}
	if n := len(s.Messages()); n != 0 {
		t.Errorf("messages: got %d, want 0", n)
	}
}

func TestSend_UntrustedCertificate(t *testing.T) {
	t.Parallel()

	serverTLS, _ := tlsPair(t)
	s := startServer(t, smtptest.Options{TLSConfig: serverTLS, ImplicitTLS: true})

	// Default client config uses the system roots, which do not trust the
	// throwaway certificate.
	p := New(Config{Host: s.Host(), Port: s.Port(), Security: SecurityImplicitTLS, Timeout: 5 * time.Second})
	if err := p.Send(context.Background(), testDraft().Message(testUser)); err == nil {
		t.Fatal("Send() expected TLS verification error")
	}
}

func TestSend_ConnectionRefused(t *testing.T) {
	t.Parallel()

	s, err := smtptest.Start(smtptest.Options{})
	if err != nil {
		t.Fatalf("smtptest.Start: %v", err)
	}
	host, port := s.Host(), s.Port()
	s.Close()

	p := New(Config{Host: host, Port: port, Timeout: 2 * time.Second})
	err = p.Send(context.Background(), testDraft().Message(testUser))
	if err == nil || !strings.Contains(err.Error(), "connect") {
		t.Fatalf("Send() error = %v, want connect failure", err)
	}
}

func TestMessageID(t *testing.T) {
	t.Parallel()

	if got := messageID(&email.Email{MessageID: "<fixed@uic.edu>"}); got != "fixed@uic.edu" {
		t.Errorf("messageID() = %q, want fixed@uic.edu", got)
	}
	if got := messageID(&email.Email{From: "me@uic.edu"}); !strings.HasSuffix(got, "@uic.edu") {
		t.Errorf("messageID() = %q, want sender domain", got)
	}
	if got := messageID(&email.Email{}); !strings.HasSuffix(got, "@localhost") {
		t.Errorf("messageID() = %q, want localhost fallback", got)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := New(Config{Host: "smtp.gmail.com"}).Name(); got != "smtp" {
		t.Errorf("Name() = %q, want smtp", got)
	}
}
