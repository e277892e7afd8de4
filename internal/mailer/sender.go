// Package mailer sends outbound mail and bounce notifications through
// AWS SES.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender dispatches outbound mail via the SES v2 API. It performs no retries
// of its own; redelivery of the triggering event is the caller's
// infrastructure's concern.
type Sender struct {
	client SendEmailAPI
}

// NewSender creates a Sender using the given client.
func NewSender(client SendEmailAPI) *Sender {
	return &Sender{client: client}
}

// Send dispatches a raw MIME message and returns the message id assigned by
// the transport.
func (s *Sender) Send(ctx context.Context, from string, to, replyTo []string, raw []byte) (string, error) {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		ReplyToAddresses: replyTo,
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: raw,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	slog.Info("email sent", "message_id", messageID)

	return messageID, nil
}

// SendSimple dispatches a plain text message without going through the raw
// MIME path. Used by the compose form.
func (s *Sender) SendSimple(ctx context.Context, from, to, subject, body string) (string, error) {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	slog.Info("email sent", "message_id", messageID)

	return messageID, nil
}
