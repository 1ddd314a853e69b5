package email

// Draft is the to/subject/body record being composed, edited and dispatched.
// It is replaced wholesale on every redraft or refine, never patched.
type Draft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Message converts the draft into an Email sent from the given address.
// An empty To yields a message without recipients.
func (d Draft) Message(from string) *Email {
	msg := &Email{
		From:     from,
		Subject:  d.Subject,
		TextBody: d.Body,
	}
	if d.To != "" {
		msg.To = []string{d.To}
	}
	return msg
}
