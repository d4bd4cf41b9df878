package clients

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3Config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/emzola/bibliotheca-circulation/config"
)

var ErrNoBucket = errors.New("s3 bucket not configured")

// S3Store keeps digital book content in an S3 bucket.
type S3Store struct {
	bucket    string
	uploader  *manager.Uploader
	presigner *s3.PresignClient
}

// NewS3Client configures a new AWS S3 object storage client.
func NewS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "")
	awsCfg, err := s3Config.LoadDefaultConfig(ctx, s3Config.WithCredentialsProvider(creds), s3Config.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Store returns a content store backed by the configured bucket.
func NewS3Store(ctx context.Context, cfg config.Config) (*S3Store, error) {
	if cfg.S3.Bucket == "" {
		return nil, ErrNoBucket
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3Store{
		bucket:    cfg.S3.Bucket,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

// Upload stores body under key as a downloadable attachment.
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentLength:      size,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("attachment"),
	})
	return err
}

// PresignDownload returns a GET link to key that stops working after ttl.
func (s *S3Store) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
