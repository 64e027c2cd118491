package docstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/warp/leave-engine/leave"
)

// Uploader is the part of s3manager.Uploader used here.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Deleter is the part of the S3 client used here.
type Deleter interface {
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
}

// S3Config selects the bucket. Endpoint is set for S3-compatible services
// (MinIO, LocalStack) and switches to path-style addressing.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// S3 stores documents as objects in one bucket.
type S3 struct {
	bucket   string
	prefix   string
	uploader Uploader
	deleter  Deleter
}

// NewS3 builds the session from the default credential chain.
func NewS3(cfg S3Config) (*S3, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3WithClients(cfg.Bucket, cfg.Prefix, s3manager.NewUploader(sess), s3.New(sess)), nil
}

func NewS3WithClients(bucket, prefix string, uploader Uploader, deleter Deleter) *S3 {
	return &S3{bucket: bucket, prefix: strings.Trim(prefix, "/"), uploader: uploader, deleter: deleter}
}

func (s *S3) key(destination string) string {
	return path.Join(s.prefix, strings.TrimPrefix(destination, "/"))
}

// Upload puts the file and returns the object URL.
func (s *S3) Upload(ctx context.Context, file leave.File, destination string) (leave.UploadResult, error) {
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(destination)),
		Body:   file.Body,
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return leave.UploadResult{}, err
	}
	return leave.UploadResult{URL: out.Location}, nil
}

// Remove deletes the object behind a URL returned by Upload. Both
// virtual-hosted and path-style URLs are understood.
func (s *S3) Remove(ctx context.Context, location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("invalid document url %q: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	key = strings.TrimPrefix(key, s.bucket+"/")
	if key == "" {
		return fmt.Errorf("document url %q has no object key", location)
	}
	_, err = s.deleter.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
