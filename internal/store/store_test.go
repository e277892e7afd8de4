package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamoClient implements API for testing.
type mockDynamoClient struct {
	getFn  func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putFn  func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	scanFn func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)

	lastGet  *dynamodb.GetItemInput
	lastPut  *dynamodb.PutItemInput
	lastScan *dynamodb.ScanInput
}

func (m *mockDynamoClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.lastGet = params
	if m.getFn != nil {
		return m.getFn(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.lastPut = params
	if m.putFn != nil {
		return m.putFn(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.lastScan = params
	if m.scanFn != nil {
		return m.scanFn(ctx, params, optFns...)
	}
	return &dynamodb.ScanOutput{}, nil
}

func stringAttr(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func TestCorrelationsGet(t *testing.T) {
	t.Parallel()

	mock := &mockDynamoClient{
		getFn: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{
				Item: map[string]types.AttributeValue{
					"message_id": &types.AttributeValueMemberS{Value: "abc123"},
					"to":         &types.AttributeValueMemberS{Value: "bob@relay.example"},
					"from":       &types.AttributeValueMemberS{Value: "carol@external.com"},
					"expires":    &types.AttributeValueMemberN{Value: "1700000000"},
				},
			}, nil
		},
	}

	correlations := NewCorrelations(mock, time.Hour)

	record, err := correlations.Get(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *mock.lastGet.TableName != "emails" {
		t.Errorf("table: got %q, want %q", *mock.lastGet.TableName, "emails")
	}
	if got := stringAttr(mock.lastGet.Key, "message_id"); got != "abc123" {
		t.Errorf("key: got %q, want %q", got, "abc123")
	}
	if record.To != "bob@relay.example" {
		t.Errorf("To: got %q, want %q", record.To, "bob@relay.example")
	}
	if record.From != "carol@external.com" {
		t.Errorf("From: got %q, want %q", record.From, "carol@external.com")
	}
	if record.Expires != 1700000000 {
		t.Errorf("Expires: got %d, want 1700000000", record.Expires)
	}
}

func TestCorrelationsGetNotFound(t *testing.T) {
	t.Parallel()

	correlations := NewCorrelations(&mockDynamoClient{}, time.Hour)

	_, err := correlations.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCorrelationsPut(t *testing.T) {
	t.Parallel()

	mock := &mockDynamoClient{}
	correlations := NewCorrelations(mock, time.Hour)
	correlations.now = func() time.Time { return time.Unix(1000, 0) }

	err := correlations.Put(context.Background(), "newid", "User@Relay.Example", "Dave@External.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *mock.lastPut.TableName != "emails" {
		t.Errorf("table: got %q, want %q", *mock.lastPut.TableName, "emails")
	}
	if got := stringAttr(mock.lastPut.Item, "message_id"); got != "newid" {
		t.Errorf("message_id: got %q, want %q", got, "newid")
	}
	if got := stringAttr(mock.lastPut.Item, "to"); got != "user@relay.example" {
		t.Errorf("to: got %q, want lowercased %q", got, "user@relay.example")
	}
	if got := stringAttr(mock.lastPut.Item, "from"); got != "dave@external.com" {
		t.Errorf("from: got %q, want lowercased %q", got, "dave@external.com")
	}
	expires, ok := mock.lastPut.Item["expires"].(*types.AttributeValueMemberN)
	if !ok || expires.Value != "4600" {
		t.Errorf("expires: got %v, want 4600", mock.lastPut.Item["expires"])
	}
}

func TestHistoryAppend(t *testing.T) {
	t.Parallel()

	mock := &mockDynamoClient{}
	history := NewHistory(mock, time.Hour)
	history.now = func() time.Time { return time.Unix(1000, 0) }
	history.newID = func() string { return "fixed-uuid" }

	if err := history.Append(context.Background(), "User@Relay.Example", "Dave@External.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *mock.lastPut.TableName != "history" {
		t.Errorf("table: got %q, want %q", *mock.lastPut.TableName, "history")
	}
	if got := stringAttr(mock.lastPut.Item, "id"); got != "fixed-uuid" {
		t.Errorf("id: got %q, want %q", got, "fixed-uuid")
	}
	if got := stringAttr(mock.lastPut.Item, "to"); got != "user@relay.example" {
		t.Errorf("to: got %q, want lowercased", got)
	}
}

func TestHistoryScanPaginates(t *testing.T) {
	t.Parallel()

	calls := 0
	mock := &mockDynamoClient{
		scanFn: func(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			calls++
			if calls == 1 {
				return &dynamodb.ScanOutput{
					Items: []map[string]types.AttributeValue{
						{
							"id":   &types.AttributeValueMemberS{Value: "one"},
							"to":   &types.AttributeValueMemberS{Value: "a@relay.example"},
							"from": &types.AttributeValueMemberS{Value: "x@external.com"},
						},
					},
					LastEvaluatedKey: map[string]types.AttributeValue{
						"id": &types.AttributeValueMemberS{Value: "one"},
					},
				}, nil
			}
			if params.ExclusiveStartKey == nil {
				t.Error("second page request missing ExclusiveStartKey")
			}
			return &dynamodb.ScanOutput{
				Items: []map[string]types.AttributeValue{
					{
						"id":   &types.AttributeValueMemberS{Value: "two"},
						"to":   &types.AttributeValueMemberS{Value: "b@relay.example"},
						"from": &types.AttributeValueMemberS{Value: "y@external.com"},
					},
				},
			}, nil
		},
	}

	history := NewHistory(mock, time.Hour)

	records, err := history.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("scan calls: got %d, want 2", calls)
	}
	if len(records) != 2 || records[0].ID != "one" || records[1].ID != "two" {
		t.Errorf("records: got %v", records)
	}
}

func TestBlocklistGet(t *testing.T) {
	t.Parallel()

	mock := &mockDynamoClient{
		getFn: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			if stringAttr(params.Key, "address") != "spam.example" {
				return &dynamodb.GetItemOutput{}, nil
			}
			return &dynamodb.GetItemOutput{
				Item: map[string]types.AttributeValue{
					"address":   &types.AttributeValueMemberS{Value: "spam.example"},
					"blocklist": &types.AttributeValueMemberS{Value: "domain"},
				},
			}, nil
		},
	}

	blocklist := NewBlocklist(mock)

	entry, err := blocklist.Get(context.Background(), "spam.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Category != CategoryDomain {
		t.Errorf("Category: got %q, want %q", entry.Category, CategoryDomain)
	}
	if *mock.lastGet.TableName != "blocklist" {
		t.Errorf("table: got %q, want %q", *mock.lastGet.TableName, "blocklist")
	}

	_, err = blocklist.Get(context.Background(), "clean.example")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestBlocklistGetPropagatesClientError(t *testing.T) {
	t.Parallel()

	mock := &mockDynamoClient{
		getFn: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	blocklist := NewBlocklist(mock)

	_, err := blocklist.Get(context.Background(), "anything")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want wrapped client error", err)
	}
}
