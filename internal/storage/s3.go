// Package storage archives exported documents to an S3-compatible bucket
// (AWS S3 or Cloudflare R2).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver stores a document and returns the key it was written under
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// objectPutter is the subset of *s3.Client used here
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

func NewS3Archiver(ctx context.Context, opts Options) (*S3Archiver, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure storage client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	log.Printf("[Storage] Archiving to bucket %s", opts.Bucket)
	return &S3Archiver{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := a.prefix + strings.TrimPrefix(name, "/")
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Printf("[Storage] Uploaded %s (%d bytes)", key, len(data))
	return key, nil
}
