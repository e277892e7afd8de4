// Package blob fetches raw message bytes from the S3 bucket the mail
// receipt pipeline writes into.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GetObjectAPI is the interface for the S3 GetObject operation.
// Used for testing with mock implementations.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store fetches stored messages by their message id.
type Store struct {
	client GetObjectAPI
	bucket string
}

// NewStore creates a Store reading from the given bucket.
func NewStore(client GetObjectAPI, bucket string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
	}
}

// Fetch returns the raw bytes of the message stored under messageID.
func (s *Store) Fetch(ctx context.Context, messageID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(messageID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %q: %w", messageID, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %q: %w", messageID, err)
	}

	return raw, nil
}
