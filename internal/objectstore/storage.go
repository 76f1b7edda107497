package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	conf "github.com/NFT-com/image-resizer/internal/config"
	"github.com/NFT-com/image-resizer/internal/entities"
)

var ErrNotFound = errors.New("object not found")

type S3 struct {
	Region string

	S3Client *s3.Client
	Uploader *manager.Uploader
}

// NewStorage builds an S3 client from the default credential chain, or from
// static keys and a custom endpoint when configured (MinIO, R2).
func NewStorage(ctx context.Context, cfg *conf.AWSConfig) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(cfg.MaxAttempts),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return New(client, cfg.Region), nil
}

func New(client *s3.Client, region string) *S3 {
	return &S3{
		Region:   region,
		S3Client: client,
		Uploader: manager.NewUploader(client),
	}
}

// Fetch downloads the whole object. Length is the object's reported size,
// which is zero for an empty object.
func (s *S3) Fetch(ctx context.Context, bucket, key string) (entities.RawAsset, error) {
	out, err := s.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return entities.RawAsset{}, translateError(err, "GetObject", bucket, key)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return entities.RawAsset{}, fmt.Errorf("failed to read body for %q: %w", key, err)
	}

	length := aws.ToInt64(out.ContentLength)
	if out.ContentLength == nil {
		length = int64(buf.Len())
	}
	return entities.RawAsset{Data: buf.Bytes(), Length: length}, nil
}

func (s *S3) Put(ctx context.Context, bucket, key string, asset entities.EncodedAsset) error {
	_, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(asset.Data),
		ContentType: aws.String(asset.ContentType),
	})
	if err != nil {
		return translateError(err, "PutObject", bucket, key)
	}
	return nil
}

// List calls fn for every key under prefix, page by page. Returning
// io.EOF from fn stops the listing without error.
func (s *S3) List(ctx context.Context, bucket, prefix string, fn func(key string) error) error {
	p := s3.NewListObjectsV2Paginator(s.S3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return translateError(err, "ListObjectsV2", bucket, prefix)
		}
		for _, obj := range page.Contents {
			if err := fn(aws.ToString(obj.Key)); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

func translateError(err error, operation, bucket, key string) error {
	var apiErr smithy.APIError
	switch {
	case isErrorType[*types.NoSuchKey](err), isErrorType[*types.NoSuchBucket](err), isErrorType[*types.NotFound](err):
		return fmt.Errorf("%s %s/%s: %w", operation, bucket, key, ErrNotFound)
	case errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NoSuchBucket"):
		return fmt.Errorf("%s %s/%s: %w", operation, bucket, key, ErrNotFound)
	default:
		return fmt.Errorf("%s failed for %s/%s: %w", operation, bucket, key, err)
	}
}

// isErrorType checks if an error is of a specific type
func isErrorType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
