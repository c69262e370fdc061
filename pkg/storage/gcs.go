package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBucket stores objects in Google Cloud Storage (Firebase Storage buckets
// are GCS buckets).
type GCSBucket struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

func NewGCSBucket(ctx context.Context, bucket, credentialsFile string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBucket{client: client, bucket: client.Bucket(bucket)}, nil
}

func (b *GCSBucket) Upload(ctx context.Context, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	w := b.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", object, err)
	}
	return nil
}

// SignedURL uses V2 signing; V4 caps expiry at seven days.
func (b *GCSBucket) SignedURL(_ context.Context, object string, expires time.Time) (string, error) {
	u, err := b.bucket.SignedURL(object, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV2,
		Method:  http.MethodGet,
		Expires: expires,
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", object, err)
	}
	return u, nil
}

func (b *GCSBucket) Delete(ctx context.Context, object string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := b.bucket.Object(object).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
