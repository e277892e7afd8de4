package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Reason is the non-delivery reason reported to the original sender.
//
// A blocked recipient is reported as an unknown mailbox while a blocked
// sender is reported as a content rejection, so a probing sender cannot
// tell blocklisting from a vacant address.
type Reason string

// Bounce reasons. The values map directly onto the SES BounceType enum.
const (
	ReasonDoesNotExist     Reason = Reason(types.BounceTypeDoesNotExist)
	ReasonContentRejected  Reason = Reason(types.BounceTypeContentRejected)
	ReasonTemporaryFailure Reason = Reason(types.BounceTypeTemporaryFailure)
)

// SendBounceAPI is the interface for the SES SendBounce operation.
// Used for testing with mock implementations.
type SendBounceAPI interface {
	SendBounce(ctx context.Context, params *ses.SendBounceInput, optFns ...func(*ses.Options)) (*ses.SendBounceOutput, error)
}

// Bouncer generates non-delivery notifications through the SES bounce API.
type Bouncer struct {
	client SendBounceAPI
	sender string
}

// NewBouncer creates a Bouncer that sends bounces from the given address.
func NewBouncer(client SendBounceAPI, sender string) *Bouncer {
	return &Bouncer{
		client: client,
		sender: sender,
	}
}

// SendBounce emits a bounce for the original message to a single recipient.
// A transport failure here is propagated; a bounce that cannot be delivered
// usually means the provider is misconfigured and must not be hidden.
func (b *Bouncer) SendBounce(ctx context.Context, originalMessageID, recipient string, reason Reason) error {
	out, err := b.client.SendBounce(ctx, &ses.SendBounceInput{
		OriginalMessageId: aws.String(originalMessageID),
		BounceSender:      aws.String(b.sender),
		BouncedRecipientInfoList: []types.BouncedRecipientInfo{
			{
				Recipient:  aws.String(recipient),
				BounceType: types.BounceType(reason),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send bounce: %w", err)
	}

	slog.Info("bounce sent",
		"message_id", aws.ToString(out.MessageId),
		"original_message_id", originalMessageID,
		"reason", string(reason),
	)

	return nil
}
