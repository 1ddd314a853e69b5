// Package email defines the message and draft types shared by the composer,
// the interactive session and the delivery providers.
package email

import "strings"

// Email is an outgoing message as handed to a delivery provider.
type Email struct {
	From      string
	To        []string
	Subject   string
	TextBody  string
	MessageID string
}

// Recipients returns the non-empty addresses in To.
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To))
	for _, addr := range e.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
