package graph

import "github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"

// sendMailRequest is the request body for the Graph sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string      `json:"subject"`
	Body         messageBody `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// graphErrorResponse is the error envelope Graph returns on failure.
type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildSendMailRequest converts a plain-text message into a sendMail body.
func buildSendMailRequest(msg *email.Email, to []string) *sendMailRequest {
	rcpts := make([]recipient, 0, len(to))
	for _, addr := range to {
		rcpts = append(rcpts, recipient{EmailAddress: emailAddress{Address: addr}})
	}
	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:      msg.Subject,
			Body:         messageBody{ContentType: "text", Content: msg.TextBody},
			ToRecipients: rcpts,
		},
		SaveToSentItems: true,
	}
}
