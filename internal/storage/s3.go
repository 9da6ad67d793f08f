package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Storage uploads files to a bucket under a fixed key prefix. Credentials
// come from the standard AWS environment and shared config files.
type S3Storage struct {
	Bucket   string
	Prefix   string
	uploader *s3manager.Uploader
}

func NewS3(bucket, prefix string, opts S3Options) (*S3Storage, error) {
	cfg := aws.NewConfig()
	if opts.Region != "" {
		cfg = cfg.WithRegion(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	client := s3.New(sess)
	return &S3Storage{
		Bucket:   bucket,
		Prefix:   prefix,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

func (s *S3Storage) Root() string {
	return "s3://" + s.Bucket + "/" + s.Prefix
}

func (s *S3Storage) key(name string) string {
	return joinKey(s.Prefix, name)
}

// Save uploads data as Prefix/name, overwriting any existing object.
func (s *S3Storage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	input := s3manager.UploadInput{
		Bucket: &s.Bucket,
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := s.uploader.UploadWithContext(ctx, &input); err != nil {
		return "", err
	}
	return "s3://" + s.Bucket + "/" + s.key(name), nil
}
