package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// =============================================================================
// R2Storage Implementation
// =============================================================================

// R2Storage stores files in Cloudflare R2. R2 is S3-compatible, so the AWS
// SDK v2 is used with a custom endpoint.
type R2Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	publicURL     string
	logger        *slog.Logger
}

// NewR2Storage creates an R2Storage. The endpoint is derived from the
// account ID: https://{account_id}.r2.cloudflarestorage.com
func NewR2Storage(cfg R2Config, logger *slog.Logger) (*R2Storage, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	client := s3.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: creds,
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	logger.Info("initialized R2 storage",
		"bucket", cfg.BucketName,
		"endpoint", endpoint,
		"public_url", cfg.PublicURL,
	)

	return &R2Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    cfg.BucketName,
		publicURL:     strings.TrimSuffix(cfg.PublicURL, "/"),
		logger:        logger,
	}, nil
}

// Put stores data at the specified key, overwriting any existing object.
func (s *R2Storage) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return &StorageError{Op: "Put", Key: key, Err: translateAPIError(err)}
	}
	return nil
}

// Get retrieves the object at the specified key.
func (s *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &StorageError{Op: "Get", Key: key, Err: translateAPIError(err)}
	}
	return out.Body, nil
}

// Delete removes the object at the specified key. Idempotent; R2 does not
// report missing keys on delete.
func (s *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return &StorageError{Op: "Delete", Key: key, Err: translateAPIError(err)}
	}
	return nil
}

// URL returns a permanent public URL when the bucket has one configured,
// otherwise a presigned URL valid for expires.
func (s *R2Storage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", &StorageError{Op: "URL", Key: key, Err: translateAPIError(err)}
	}
	return req.URL, nil
}

// Exists checks whether an object exists at the specified key.
func (s *R2Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		translated := translateAPIError(err)
		if errors.Is(translated, ErrNotFound) {
			return false, nil
		}
		return false, &StorageError{Op: "Exists", Key: key, Err: translated}
	}
	return true, nil
}

// translateAPIError maps S3 API error codes onto the package's sentinels.
func translateAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "AccessDenied":
			return ErrAccessDenied
		}
	}
	return err
}
