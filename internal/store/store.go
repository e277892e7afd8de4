// Package store provides accessors for the relay's DynamoDB tables:
// the correlation table, the history table, and the blocklist.
package store

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ErrNotFound is returned when a lookup finds no record for the given key.
var ErrNotFound = errors.New("record not found")

// API is the subset of the DynamoDB client used by the store accessors.
// It allows tests to inject mock implementations.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}
