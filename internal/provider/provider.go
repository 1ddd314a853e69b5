// Package provider defines the interface for email dispatch backends.
package provider

import (
	"context"
	"errors"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
)

// ErrNoRecipient is returned by backends that cannot deliver a message
// without a recipient address.
var ErrNoRecipient = errors.New("message has no recipient")

// Provider is the interface that dispatch backends must implement.
// A backend either hands the message to a local mail client (mailto) or
// submits it for delivery (smtp, ses, graph). Send makes exactly one attempt.
type Provider interface {
	// Send dispatches an email message through this provider.
	// It returns an error if the dispatch fails.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the human-readable name of this provider.
	Name() string
}
