// Package composer drafts and refines emails with a JSON-mode model call.
package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/llm"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/signature"
)

// ErrMissingField is returned when the model reply lacks subject or body.
var ErrMissingField = errors.New("draft reply is missing a required field")

// Composer produces drafts. The recipient of a draft is always the address it
// was asked to write to; the model's echo of it is never trusted.
type Composer struct {
	completer llm.Completer
	enforcer  *signature.Enforcer
	role      string
	logger    *slog.Logger
}

// New creates a Composer. role names the kind of recipient and is used for
// the generic greeting when no name is known.
func New(completer llm.Completer, enforcer *signature.Enforcer, role string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		completer: completer,
		enforcer:  enforcer,
		role:      role,
		logger:    logger,
	}
}

// Compose writes a new draft to recipient from a free-text instruction. name
// may be empty when the recipient's name is unknown.
func (c *Composer) Compose(ctx context.Context, recipient, instruction, name string) (email.Draft, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: c.systemPrompt(name)},
		{Role: llm.RoleUser, Content: composeRequest(recipient, instruction, name)},
	}
	return c.complete(ctx, recipient, messages)
}

// Refine rewrites an existing draft according to an edit instruction. The
// result replaces the draft wholesale and keeps its recipient.
func (c *Composer) Refine(ctx context.Context, draft email.Draft, edit string) (email.Draft, error) {
	current, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return email.Draft{}, fmt.Errorf("failed to encode current draft: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: c.systemPrompt("")},
		{Role: llm.RoleSystem, Content: refineRules},
		{Role: llm.RoleUser, Content: refineRequest(string(current), edit)},
	}
	return c.complete(ctx, draft.To, messages)
}

// reply is the model's JSON object. Pointers distinguish absent fields.
type reply struct {
	To      *string `json:"to"`
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
}

func (c *Composer) complete(ctx context.Context, recipient string, messages []llm.Message) (email.Draft, error) {
	raw, err := c.completer.CompleteJSON(ctx, messages)
	if err != nil {
		return email.Draft{}, fmt.Errorf("draft request failed: %w", err)
	}

	var r reply
	if err := llm.DecodeObject(raw, &r); err != nil {
		return email.Draft{}, fmt.Errorf("invalid draft reply: %w", err)
	}
	if r.Subject == nil {
		return email.Draft{}, fmt.Errorf("%w: subject", ErrMissingField)
	}
	if r.Body == nil {
		return email.Draft{}, fmt.Errorf("%w: body", ErrMissingField)
	}

	if r.To != nil && !strings.EqualFold(strings.TrimSpace(*r.To), recipient) {
		c.logger.Warn("model changed the recipient, keeping the original", "requested", recipient, "returned", *r.To)
	}

	draft := email.Draft{
		To:      recipient,
		Subject: singleLine(*r.Subject),
		Body:    strings.TrimSpace(*r.Body),
	}
	return c.enforcer.Enforce(draft), nil
}

// singleLine joins a multi-line subject into one line.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
