// Package storage archives rendered documents in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/idealtransport/bol-ledger/internal/config"
)

// ObjectPutter is the part of the S3 client the archive uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archive struct {
	client     ObjectPutter
	bucket     string
	publicBase string
	logger     *slog.Logger
}

// NewArchive builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing, which R2 and MinIO expect.
func NewArchive(ctx context.Context, logger *slog.Logger, cfg *config.StorageConfig) (*Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("Statement archive configured", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return newArchive(logger, client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newArchive(logger *slog.Logger, client ObjectPutter, bucket, publicBase string) *Archive {
	return &Archive{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger,
	}
}

// Put uploads body under key and returns the object's URL
func (a *Archive) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		a.logger.Error("Failed to upload object", "bucket", a.bucket, "key", key, "error", err)
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return a.objectURL(key), nil
}

func (a *Archive) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	escaped := strings.Join(segments, "/")

	if a.publicBase == "" {
		return fmt.Sprintf("s3://%s/%s", a.bucket, escaped)
	}
	return a.publicBase + "/" + escaped
}
