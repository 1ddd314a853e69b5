// Package graph implements a Provider that sends mail through the Microsoft
// Graph sendMail API using OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
)

const (
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	defaultLoginURL = "https://login.microsoftonline.com"
	graphScope      = "https://graph.microsoft.com/.default"
)

// Config holds the app registration and mailbox used for sending.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Sender is the mailbox (user principal name) that sends the message.
	Sender string

	// GraphURL and LoginURL override the public endpoints.
	GraphURL string
	LoginURL string
	// HTTPClient is the base transport for both token and API requests.
	HTTPClient *http.Client
}

// Provider sends one sendMail request per message.
type Provider struct {
	sendURL string
	client  *http.Client
}

// New creates a Provider. Tokens are fetched lazily and cached by the
// oauth2 transport.
func New(cfg Config) *Provider {
	graphURL := strings.TrimRight(cfg.GraphURL, "/")
	if graphURL == "" {
		graphURL = defaultGraphURL
	}
	loginURL := strings.TrimRight(cfg.LoginURL, "/")
	if loginURL == "" {
		loginURL = defaultLoginURL
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", loginURL, url.PathEscape(cfg.TenantID)),
		Scopes:       []string{graphScope},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	client := cc.Client(ctx)
	client.Timeout = base.Timeout

	return &Provider{
		sendURL: fmt.Sprintf("%s/users/%s/sendMail", graphURL, url.PathEscape(cfg.Sender)),
		client:  client,
	}
}

// Send posts the message once. Any non-2xx status is returned as an error.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	to := msg.Recipients()
	if len(to) == 0 {
		return provider.ErrNoRecipient
	}

	body, err := json.Marshal(buildSendMailRequest(msg, to))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("Graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		slog.Info("message submitted", "provider", "graph", "recipients", len(to))
		return nil
	}
	return statusError(resp)
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "graph"
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var ge graphErrorResponse
	if err := json.Unmarshal(raw, &ge); err == nil && ge.Error.Message != "" {
		return fmt.Errorf("Graph API error (HTTP %d, %s): %s", resp.StatusCode, ge.Error.Code, ge.Error.Message)
	}
	return fmt.Errorf("Graph API error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
