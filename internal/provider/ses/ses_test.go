package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func testMessage() *email.Email {
	return email.Draft{
		To:      "prof@uic.edu",
		Subject: "Office hours",
		Body:    "Hello Professor,\n\nAre you free Friday?\n\nSincerely,\nBhagyesh",
	}.Message("student@uic.edu")
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient("Bhagyesh", &mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_SimpleTextEmail(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("Bhagyesh", mock)

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Simple == nil {
		t.Fatal("expected simple email content, got nil")
	}
	if got := *input.FromEmailAddress; got != `"Bhagyesh" <student@uic.edu>` {
		t.Errorf("FromEmailAddress: got %q", got)
	}
	if got := input.Destination.ToAddresses; len(got) != 1 || got[0] != "prof@uic.edu" {
		t.Errorf("ToAddresses: got %v", got)
	}
	if got := *input.Content.Simple.Subject.Data; got != "Office hours" {
		t.Errorf("Subject: got %q", got)
	}
	if got := *input.Content.Simple.Body.Text.Data; !strings.HasSuffix(got, "Sincerely,\nBhagyesh") {
		t.Errorf("TextBody: got %q", got)
	}
	if input.Content.Simple.Body.Html != nil {
		t.Error("expected no HTML body")
	}
}

func TestSend_NoSenderName(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	if err := NewWithClient("", mock).Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := *mock.lastInput.FromEmailAddress; got != "<student@uic.edu>" {
		t.Errorf("FromEmailAddress: got %q", got)
	}
}

func TestSend_NoRecipient(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	msg := testMessage()
	msg.To = nil

	err := NewWithClient("Bhagyesh", mock).Send(context.Background(), msg)
	if !errors.Is(err, provider.ErrNoRecipient) {
		t.Fatalf("error = %v, want ErrNoRecipient", err)
	}
	if mock.callCount != 0 {
		t.Errorf("call count: got %d, want 0", mock.callCount)
	}
}

func TestSend_ErrorIsSingleAttempt(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("throttled")
	mock := &mockSESClient{
		sendFn: func(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, apiErr
		},
	}

	err := NewWithClient("Bhagyesh", mock).Send(context.Background(), testMessage())
	if !errors.Is(err, apiErr) {
		t.Fatalf("error = %v, want wrapped %v", err, apiErr)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}
