package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// blocklistTable is the DynamoDB deny list, keyed by address or domain.
const blocklistTable = "blocklist"

// Category tags a blocklist entry with the field it matches against.
type Category string

// Blocklist entry categories.
const (
	CategoryToAddr   Category = "to_addr"
	CategoryFromAddr Category = "from_addr"
	CategoryDomain   Category = "domain"
)

// BlocklistEntry is a single deny-list entry.
type BlocklistEntry struct {
	Address  string   `dynamodbav:"address"`
	Category Category `dynamodbav:"blocklist"`
}

// Blocklist reads the deny list. The routing core never writes it.
type Blocklist struct {
	client API
}

// NewBlocklist creates a Blocklist accessor.
func NewBlocklist(client API) *Blocklist {
	return &Blocklist{client: client}
}

// Get fetches the blocklist entry for the given address or domain key.
// Returns ErrNotFound if the key is not listed.
func (b *Blocklist) Get(ctx context.Context, key string) (BlocklistEntry, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(blocklistTable),
		Key: map[string]types.AttributeValue{
			"address": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return BlocklistEntry{}, fmt.Errorf("failed to get blocklist entry %q: %w", key, err)
	}
	if out.Item == nil {
		return BlocklistEntry{}, fmt.Errorf("blocklist entry %q: %w", key, ErrNotFound)
	}

	var entry BlocklistEntry
	if err := attributevalue.UnmarshalMap(out.Item, &entry); err != nil {
		return BlocklistEntry{}, fmt.Errorf("failed to unmarshal blocklist entry %q: %w", key, err)
	}

	return entry, nil
}

// Scan returns every blocklist entry. Used by the statistics page.
func (b *Blocklist) Scan(ctx context.Context) ([]BlocklistEntry, error) {
	var entries []BlocklistEntry

	input := &dynamodb.ScanInput{
		TableName: aws.String(blocklistTable),
	}

	for {
		out, err := b.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blocklist table: %w", err)
		}

		var page []BlocklistEntry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blocklist entries: %w", err)
		}
		entries = append(entries, page...)

		if out.LastEvaluatedKey == nil {
			return entries, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
