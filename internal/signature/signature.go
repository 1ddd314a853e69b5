// Package signature normalizes the sign-off of drafted email bodies.
package signature

import (
	"regexp"
	"strings"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
)

// Placeholders are the name tokens models tend to leave in a body. They are
// matched case-insensitively.
var Placeholders = []string{
	"[Your Name]",
	"[Your Full Name]",
	"[Your Name Here]",
	"[Insert Name]",
	"[Signature]",
	"[Your Signature]",
	"{Your Name}",
	"{Signature}",
}

var placeholderPattern = func() *regexp.Regexp {
	quoted := make([]string, len(Placeholders))
	for i, p := range Placeholders {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}()

// Enforcer replaces placeholders with the sender name and guarantees that a
// body ends with exactly one closing block.
type Enforcer struct {
	sender  string
	closing string
	tail    *regexp.Regexp
}

// New creates an Enforcer for the given closing phrase and sender name. The
// closing block is the phrase and the name on separate lines.
func New(closingPhrase, senderName string) *Enforcer {
	phrase := strings.TrimSpace(closingPhrase)
	sender := strings.TrimSpace(senderName)

	closing := phrase
	if sender != "" {
		closing = phrase + "\n" + sender
	}

	words := strings.Fields(closing)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}

	e := &Enforcer{sender: sender, closing: closing}
	if len(words) > 0 {
		e.tail = regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`) + `\s*$`)
	}
	return e
}

// Closing returns the canonical closing block.
func (e *Enforcer) Closing() string {
	return e.closing
}

// Apply returns body with placeholders replaced and the closing block in
// place. It is idempotent.
func (e *Enforcer) Apply(body string) string {
	body = placeholderPattern.ReplaceAllLiteralString(body, e.sender)
	if e.closing == "" {
		return body
	}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return e.closing
	}
	if strings.HasSuffix(strings.ToLower(trimmed), strings.ToLower(e.closing)) {
		return body
	}

	// A closing that differs only in case or spacing is rewritten in place.
	if loc := e.tail.FindStringIndex(body); loc != nil {
		return body[:loc[0]] + e.closing
	}

	return strings.TrimRight(body, " \t\r\n") + "\n\n" + e.closing
}

// Enforce applies the enforcer to a draft body. The recipient and subject are
// left untouched.
func (e *Enforcer) Enforce(d email.Draft) email.Draft {
	d.Body = e.Apply(d.Body)
	return d
}
