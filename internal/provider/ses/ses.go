// Package ses implements a Provider that sends drafts via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/emersion/go-message/mail"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
)

// Config holds the configuration for creating a Provider.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// SenderName is the display name shown next to the message's From address.
	SenderName string
}

// Provider sends drafts through the SES v2 SendEmail API.
type Provider struct {
	senderName string
	client     SendEmailAPI
}

// SendEmailAPI is the subset of the SES v2 client used by Provider.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a Provider. The SDK's own retryer is limited to a single
// attempt so a failed send is reported to the user immediately.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.SenderName, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a Provider around an existing client.
func NewWithClient(senderName string, client SendEmailAPI) *Provider {
	return &Provider{senderName: senderName, client: client}
}

// Send delivers the message in one SendEmail call.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	to := msg.Recipients()
	if len(to) == 0 {
		return provider.ErrNoRecipient
	}

	out, err := p.client.SendEmail(ctx, p.input(msg, to))
	if err != nil {
		return fmt.Errorf("SES send failed: %w", err)
	}

	slog.Info("message submitted", "provider", "ses", "message_id", aws.ToString(out.MessageId), "recipients", len(to))
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ses"
}

func (p *Provider) input(msg *email.Email, to []string) *sesv2.SendEmailInput {
	from := (&mail.Address{Name: p.senderName, Address: msg.From}).String()
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: to},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
}
