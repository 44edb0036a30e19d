// Package storage mirrors harvested raw pages to object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of *s3.Client the mirror needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Mirror struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Mirror(client S3API, bucket, prefix string) (S3Mirror, error) {
	if client == nil {
		return S3Mirror{}, fmt.Errorf("s3 mirror: client is required")
	}
	if bucket == "" {
		return S3Mirror{}, fmt.Errorf("s3 mirror: bucket is required")
	}
	return S3Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// NewS3MirrorFromEnv builds the s3 client from the default aws config chain
// (environment, shared config files, instance roles).
func NewS3MirrorFromEnv(ctx context.Context, bucket, prefix string) (S3Mirror, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return S3Mirror{}, fmt.Errorf("error loading default AWS config: %w", err)
	}
	return NewS3Mirror(s3.NewFromConfig(cfg), bucket, prefix)
}

func (m S3Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

func (m S3Mirror) Put(ctx context.Context, name string, contents []byte) error {
	key := m.Key(name)
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(contents),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, key, err)
	}
	return nil
}
