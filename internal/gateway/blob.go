package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by BlobStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BlobStore uploads public assets (product and gallery images) to S3.
type BlobStore struct {
	client     S3API
	region     string
	publicBase string
}

// NewBlobStore creates a BlobStore. publicBase, when set, replaces the
// virtual-hosted S3 URL (CDN or LocalStack).
func NewBlobStore(client S3API, region, publicBase string) *BlobStore {
	return &BlobStore{client: client, region: region, publicBase: strings.TrimRight(publicBase, "/")}
}

// Enabled reports whether uploads can be performed.
func (b *BlobStore) Enabled() bool {
	return b != nil && b.client != nil
}

// Upload stores data under bucket/key.
func (b *BlobStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if !b.Enabled() {
		return ErrBlobDisabled
	}
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("gateway: upload: bucket and key required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("gateway: s3 put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL returns the address a browser can load bucket/key from.
func (b *BlobStore) PublicURL(bucket, key string) string {
	escaped := escapeKey(key)
	if b != nil && b.publicBase != "" {
		return b.publicBase + "/" + bucket + "/" + escaped
	}
	region := "us-east-1"
	if b != nil && b.region != "" {
		region = b.region
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, escaped)
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
