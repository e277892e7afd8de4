package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

// historyTable is the append-only DynamoDB table of anonymized (to, from)
// pairs used for aggregate statistics.
const historyTable = "history"

// HistoryRecord is a single anonymized delivery observation.
type HistoryRecord struct {
	ID      string `dynamodbav:"id"`
	To      string `dynamodbav:"to"`
	From    string `dynamodbav:"from"`
	Expires int64  `dynamodbav:"expires"`
}

// History appends and scans history records.
type History struct {
	client API
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// NewHistory creates a History accessor. Records written through it expire
// after the given ttl.
func NewHistory(client API, ttl time.Duration) *History {
	return &History{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Append writes a new history record for the given addresses.
func (h *History) Append(ctx context.Context, to, from string) error {
	record := HistoryRecord{
		ID:      h.newID(),
		To:      strings.ToLower(to),
		From:    strings.ToLower(from),
		Expires: h.now().Add(h.ttl).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	if _, err := h.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(historyTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put history record: %w", err)
	}

	return nil
}

// Scan returns every history record. Used by the statistics page only;
// the routing core never reads history.
func (h *History) Scan(ctx context.Context) ([]HistoryRecord, error) {
	var records []HistoryRecord

	input := &dynamodb.ScanInput{
		TableName: aws.String(historyTable),
	}

	for {
		out, err := h.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history table: %w", err)
		}

		var page []HistoryRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history records: %w", err)
		}
		records = append(records, page...)

		if out.LastEvaluatedKey == nil {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
