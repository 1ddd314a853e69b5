// Package mailto implements a Provider that opens a pre-filled message in
// the user's mail client. Delivery happens in the client, so a successful
// Send only means the hand-off to the OS worked.
package mailto

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
)

// Launcher opens a URI with the platform's handler.
type Launcher func(ctx context.Context, uri string) error

// Provider opens mailto: URIs.
type Provider struct {
	launch Launcher
}

// New creates a Provider using the launcher for the current platform.
func New() *Provider {
	return &Provider{launch: PlatformLauncher(runtime.GOOS)}
}

// NewWithLauncher creates a Provider with a custom launcher.
func NewWithLauncher(l Launcher) *Provider {
	return &Provider{launch: l}
}

// Send builds the mailto URI for msg and opens it. A message without a
// recipient opens with an empty To field.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	uri := BuildURI(strings.Join(msg.Recipients(), ","), msg.Subject, msg.TextBody)
	slog.Debug("opening mail client", "uri_length", len(uri))

	if err := p.launch(ctx, uri); err != nil {
		return fmt.Errorf("failed to open mail client: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mailto"
}

// BuildURI returns mailto:<to>?subject=<subject>&body=<body> with every
// component percent-encoded. Spaces become %20 and "@" in the address is
// left as is.
func BuildURI(to, subject, body string) string {
	addr := strings.ReplaceAll(escape(to), "%40", "@")
	return "mailto:" + addr + "?subject=" + escape(subject) + "&body=" + escape(body)
}

// escape percent-encodes everything except unreserved characters.
// QueryEscape already encodes a literal "+" as %2B, so every remaining "+"
// stands for a space.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// PlatformLauncher returns the launcher for goos. On macOS the Mail app is
// tried first, then the default handler.
func PlatformLauncher(goos string) Launcher {
	switch goos {
	case "darwin":
		return func(ctx context.Context, uri string) error {
			err := exec.CommandContext(ctx, "open", "-a", "Mail", uri).Run()
			if err == nil {
				return nil
			}
			slog.Warn("could not launch Mail app directly, falling back to default handler", "error", err)
			return exec.CommandContext(ctx, "open", uri).Run()
		}
	case "windows":
		return func(ctx context.Context, uri string) error {
			return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", uri).Run()
		}
	default:
		return func(ctx context.Context, uri string) error {
			if _, err := exec.LookPath("xdg-open"); err != nil {
				return fmt.Errorf("no URI handler found: %w", err)
			}
			return exec.CommandContext(ctx, "xdg-open", uri).Run()
		}
	}
}
