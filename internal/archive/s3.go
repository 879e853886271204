package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mixshift/sqp-importer/internal/config"
)

// S3Store keeps artifacts in an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3 store from archive configuration. A custom
// endpoint enables S3-compatible services (MinIO, R2).
func NewS3Store(cfg *config.ArchiveConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket not configured")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			scheme := "http"
			if cfg.UseSSL {
				scheme = "https"
			}
			endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
			if !strings.Contains(endpoint, "://") {
				endpoint = scheme + "://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the artifact and returns its s3:// location.
func (s *S3Store) Put(ctx context.Context, key string, reader io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Get downloads a stored artifact.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact %s: %w", key, err)
	}
	return out.Body, nil
}

// Exists checks whether an artifact is present in the bucket.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
