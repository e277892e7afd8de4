package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// correlationTable is the DynamoDB table mapping outbound message ids to the
// original (to, from) pair.
const correlationTable = "emails"

// CorrelationRecord maps an outbound message id back to the addressing of
// the message that produced it. Records are written once, read once by a
// later reply, and garbage-collected by the table's TTL attribute.
type CorrelationRecord struct {
	MessageID string `dynamodbav:"message_id"`
	To        string `dynamodbav:"to"`
	From      string `dynamodbav:"from"`
	Expires   int64  `dynamodbav:"expires"`
}

// Correlations reads and writes correlation records.
type Correlations struct {
	client API
	ttl    time.Duration
	now    func() time.Time
}

// NewCorrelations creates a Correlations accessor. Records written through
// it expire after the given ttl.
func NewCorrelations(client API, ttl time.Duration) *Correlations {
	return &Correlations{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get fetches the correlation record for the given message id key.
// Returns ErrNotFound if no record exists.
func (c *Correlations) Get(ctx context.Context, messageID string) (CorrelationRecord, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(correlationTable),
		Key: map[string]types.AttributeValue{
			"message_id": &types.AttributeValueMemberS{Value: messageID},
		},
	})
	if err != nil {
		return CorrelationRecord{}, fmt.Errorf("failed to get correlation record %q: %w", messageID, err)
	}
	if out.Item == nil {
		return CorrelationRecord{}, fmt.Errorf("correlation record %q: %w", messageID, ErrNotFound)
	}

	var record CorrelationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return CorrelationRecord{}, fmt.Errorf("failed to unmarshal correlation record %q: %w", messageID, err)
	}

	return record, nil
}

// Put writes a correlation record keyed by messageID. Addresses are
// lowercased before they become attribute values.
func (c *Correlations) Put(ctx context.Context, messageID, to, from string) error {
	record := CorrelationRecord{
		MessageID: messageID,
		To:        strings.ToLower(to),
		From:      strings.ToLower(from),
		Expires:   c.now().Add(c.ttl).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation record: %w", err)
	}

	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(correlationTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put correlation record %q: %w", messageID, err)
	}

	return nil
}
