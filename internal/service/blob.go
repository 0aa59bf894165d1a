package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"vkozyrev/photocaption/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned by Get/Download when the key does not
// exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

type S3BlobService struct {
	config   *config.Config
	uploader *manager.Uploader
	s3Client *s3.Client
}

func NewS3BlobService(cfg *config.Config) (*S3BlobService, error) {
	s3Opts := []func(*s3.Options){}

	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	credsProvider := credentials.NewStaticCredentialsProvider(
		cfg.S3AccessKeyID,
		cfg.S3SecretAccessKey,
		"",
	)

	awsCfg := aws.Config{
		Region:      cfg.S3Region,
		Credentials: credsProvider,
	}

	s3Client := s3.NewFromConfig(awsCfg, s3Opts...)

	service := &S3BlobService{
		config:   cfg,
		uploader: manager.NewUploader(s3Client),
		s3Client: s3Client,
	}

	log.Printf("S3 blob storage initialized, bucket: %s", cfg.S3BucketName)
	return service, nil
}

// Put stores an object under key, overwriting whatever was there.
func (s *S3BlobService) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Get reads a whole object into memory. Missing keys map to
// ErrObjectNotFound.
func (s *S3BlobService) Get(ctx context.Context, key string) ([]byte, error) {
	body, _, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Download streams an object. The caller owns the returned body and must
// close it on every exit path.
func (s *S3BlobService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// List returns every key in the bucket, in store order.
func (s *S3BlobService) List(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.S3BucketName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// PublicURL composes the publicly reachable URL for a stored object.
func (s *S3BlobService) PublicURL(key string) string {
	if s.config.S3PublicURL != "" {
		return strings.TrimRight(s.config.S3PublicURL, "/") + "/" + key
	}
	if s.config.S3Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.S3Endpoint, "/"), s.config.S3BucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.S3BucketName, s.config.S3Region, key)
}

func (s *S3BlobService) HealthCheck(ctx context.Context) error {
	_, err := s.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
