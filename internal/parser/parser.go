// Package parser reads RFC 5322 messages back into email.Email values.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
)

// Parse decodes a raw message. Encoded headers and transfer encodings are
// decoded and line endings in the body are normalized to "\n". For multipart
// messages the text/plain part becomes TextBody.
func Parse(raw []byte) (*email.Email, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	msg := &email.Email{
		From:      firstAddress(env, "From"),
		To:        addresses(env, "To"),
		Subject:   env.GetHeader("Subject"),
		TextBody:  strings.TrimRight(strings.ReplaceAll(env.Text, "\r\n", "\n"), "\n"),
		MessageID: strings.TrimSpace(env.GetHeader("Message-Id")),
	}
	return msg, nil
}

// addresses returns the bare addresses in the named header. A header that
// does not parse as an address list is returned as a single raw value.
func addresses(env *enmime.Envelope, key string) []string {
	list, err := env.AddressList(key)
	if err != nil {
		if raw := strings.TrimSpace(env.GetHeader(key)); raw != "" {
			return []string{raw}
		}
		return nil
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

func firstAddress(env *enmime.Envelope, key string) string {
	if list := addresses(env, key); len(list) > 0 {
		return list[0]
	}
	return ""
}
