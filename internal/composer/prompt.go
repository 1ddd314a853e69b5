package composer

import (
	"fmt"
	"strings"
)

const refineRules = "You are revising an existing draft.\n" +
	"Keep 'to' exactly as it is in the current draft.\n" +
	"Apply the requested edits and return the complete revised email, not only the changed parts.\n" +
	"Keep the closing block at the end of the body."

func (c *Composer) systemPrompt(name string) string {
	var b strings.Builder
	b.WriteString("You are an email drafting assistant.\n")
	b.WriteString("You will be given a recipient email and a description of what the user wants.\n")
	b.WriteString("Return ONLY a JSON object with exactly these keys: 'to', 'subject', 'body'.\n")
	b.WriteString("'to' must be exactly the recipient email given.\n")
	b.WriteString("'subject' should be a short single line (<= 80 characters).\n")
	b.WriteString("'body' should be a polite, clear email body in plain text.\n")
	b.WriteString(c.salutationRule(name))
	b.WriteString("Never include placeholders such as [Your Name].\n")
	fmt.Fprintf(&b, "Always end the body with:\n%s\n", c.enforcer.Closing())
	b.WriteString("Do NOT include markdown, explanations, or extra keys.")
	return b.String()
}

func (c *Composer) salutationRule(name string) string {
	if name != "" {
		return "Use the provided recipient name exactly for the salutation (e.g., 'Dear Dr. Smith,').\n" +
			fmt.Sprintf("The recipient name is: %s\n", name)
	}
	if c.role == "" {
		return "No specific recipient name is available. Use a generic greeting without guessing a name or repeating the email address.\n"
	}
	return fmt.Sprintf("No specific recipient name is available. Use a generic greeting like 'Hello %s,' "+
		"without guessing a name or repeating the email address.\n", titleCase(c.role))
}

func composeRequest(recipient, instruction, name string) string {
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("Recipient email: %s\n\nRecipient name (if known): %s\n\nWhat I want to say: %s",
		recipient, name, instruction)
}

func refineRequest(current, edit string) string {
	return fmt.Sprintf("Current draft:\n%s\n\nRequested edits: %s", current, edit)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
