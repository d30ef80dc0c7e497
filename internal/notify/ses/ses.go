// Package ses implements a Notifier that emails receipts to an operator
// mailbox via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/sealed-relay/internal/mail"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// defaultRetryDelay is the initial delay for exponential backoff.
const defaultRetryDelay = 1 * time.Second

// Config holds the configuration for creating a Notifier.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Sender is the verified SES identity notifications are sent from.
	Sender string

	// Recipient is the operator mailbox that receives notifications.
	Recipient string
}

// SendEmailAPI is the subset of the SES v2 client the notifier uses.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier sends a short summary email for each accepted letter.
type Notifier struct {
	sender     string
	recipient  string
	client     SendEmailAPI
	retryDelay time.Duration
}

// New creates a Notifier using the default AWS credential chain, or static
// credentials when both keys are set.
func New(ctx context.Context, cfg Config) (*Notifier, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.Sender, cfg.Recipient, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a Notifier with a custom client.
func NewWithClient(sender, recipient string, client SendEmailAPI) *Notifier {
	return &Notifier{
		sender:     sender,
		recipient:  recipient,
		client:     client,
		retryDelay: defaultRetryDelay,
	}
}

// Notify emails a summary of the receipt, retrying transient failures with
// exponential backoff.
func (n *Notifier) Notify(ctx context.Context, r *mail.Receipt) error {
	input := buildInput(n.sender, n.recipient, r)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES notification",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			if err := sleepWithContext(ctx, n.backoffDelay(attempt)); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		_, err := n.client.SendEmail(ctx, input)
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return fmt.Errorf("SES notification failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the notifier name.
func (n *Notifier) Name() string {
	return "ses"
}

// buildInput creates the plain-text summary email for r.
func buildInput(sender, recipient string, r *mail.Receipt) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(sender),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(fmt.Sprintf("Letter %s received", r.LetterID)),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(summary(r)),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
}

func summary(r *mail.Receipt) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Letter: %s\r\n", r.LetterID)
	fmt.Fprintf(&b, "Received at: %s\r\n", r.ReceivedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total received: %d\r\n", r.Count)
	if r.Sender != nil {
		fmt.Fprintf(&b, "Sender: %s\r\n", r.Sender)
	} else {
		b.WriteString("Sender: anonymous\r\n")
	}
	fmt.Fprintf(&b, "Recipients: %d\r\n", len(r.Recipients))
	fmt.Fprintf(&b, "Attachments: %d (%d bytes declared)\r\n", len(r.Attachments), r.AttachmentBytes())

	return b.String()
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
func (n *Notifier) backoffDelay(attempt int) time.Duration {
	delay := n.retryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
