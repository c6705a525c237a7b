package gateway

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestBlobStoreUpload(t *testing.T) {
	client := &fakeS3{}
	blobs := NewBlobStore(client, "ap-southeast-1", "")

	require.NoError(t, blobs.Upload(context.Background(), "assets", "products/wax.png", []byte("png"), "image/png"))
	assert.Equal(t, "assets", aws.ToString(client.input.Bucket))
	assert.Equal(t, "products/wax.png", aws.ToString(client.input.Key))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, []byte("png"), client.body)

	client.err = errors.New("denied")
	assert.Error(t, blobs.Upload(context.Background(), "assets", "k", nil, ""))
	assert.Error(t, blobs.Upload(context.Background(), "", "k", nil, ""))
}

func TestBlobStoreDisabled(t *testing.T) {
	var blobs *BlobStore
	assert.False(t, blobs.Enabled())
	assert.ErrorIs(t, blobs.Upload(context.Background(), "b", "k", nil, ""), ErrBlobDisabled)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://assets.s3.ap-southeast-1.amazonaws.com/products/my%20wax.png",
		NewBlobStore(nil, "ap-southeast-1", "").PublicURL("assets", "/products/my wax.png"))
	assert.Equal(t, "http://localhost:4566/assets/a/b.png",
		NewBlobStore(nil, "", "http://localhost:4566/").PublicURL("assets", "a/b.png"))
}
