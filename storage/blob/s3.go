package blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/poiesic/corpus/storage"
)

// S3Store implements storage.BlobStore on an S3 bucket.
// The caller supplies a configured client; credentials and region resolution
// stay outside the ingestion core.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
}

var _ storage.BlobStore = (*S3Store)(nil)

// NewS3Store creates a blob store backed by the given bucket.
func NewS3Store(client *s3.Client, bucket, region string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}
}

// Save uploads data under key and returns the key as the location
// reference. Delete takes the same key back, so the stored reference
// round-trips; PublicURL resolves it to an object URL.
func (s *S3Store) Save(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return key, nil
}

// Delete removes the object at key. S3 delete is idempotent.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// PublicURL returns the object URL for key.
func (s *S3Store) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
