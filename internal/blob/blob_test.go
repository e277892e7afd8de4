package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements GetObjectAPI for testing.
type mockS3Client struct {
	getFn     func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	lastInput *s3.GetObjectInput
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.lastInput = params
	return m.getFn(ctx, params, optFns...)
}

func TestFetch(t *testing.T) {
	t.Parallel()

	mock := &mockS3Client{
		getFn: func(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("raw message bytes")),
			}, nil
		},
	}

	store := NewStore(mock, "relay-inbound")

	raw, err := store.Fetch(context.Background(), "msg-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != "raw message bytes" {
		t.Errorf("content: got %q, want %q", raw, "raw message bytes")
	}
	if *mock.lastInput.Bucket != "relay-inbound" {
		t.Errorf("bucket: got %q, want %q", *mock.lastInput.Bucket, "relay-inbound")
	}
	if *mock.lastInput.Key != "msg-42" {
		t.Errorf("key: got %q, want %q", *mock.lastInput.Key, "msg-42")
	}
}

func TestFetchPropagatesError(t *testing.T) {
	t.Parallel()

	mock := &mockS3Client{
		getFn: func(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, errors.New("NoSuchKey")
		},
	}

	store := NewStore(mock, "relay-inbound")

	if _, err := store.Fetch(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing object")
	}
}
