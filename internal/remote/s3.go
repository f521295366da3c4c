package remote

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var _ Store = &S3Store{}

// S3Store fetches assets through the S3 API for buckets that require signed
// access instead of the public HTTPS endpoint.
type S3Store struct {
	bucket string
	client *s3.Client
}

// NewS3Store loads the default AWS config and verifies bucket access once at
// startup so misconfiguration fails the process early, not per request.
func NewS3Store(ctx context.Context, bucket string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	_, err = client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %q: %w", bucket, err)
	}

	return &S3Store{bucket: bucket, client: client}, nil
}

func (s *S3Store) Fetch(ctx context.Context, filename string) (io.ReadCloser, int64, error) {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, 0, fmt.Errorf("fetch %s: %w", filename, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("fetch %s: %w", filename, err)
	}

	var size int64
	if obj.ContentLength != nil {
		size = *obj.ContentLength
	}
	return obj.Body, size, nil
}
