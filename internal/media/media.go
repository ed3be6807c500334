// Package media stores uploaded cover images.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=./mock/media.go -package=mock -source=media.go

// CoversPrefix is a key prefix of cover images.
const CoversPrefix = "covers/"

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = errors.New("uploads are disabled")

// nolint:gochecknoglobals
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Store puts objects to storage and returns their public URLs.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ImageContentType returns content type of image by filename. ok is false when file is not an image.
func ImageContentType(filename string) (string, bool) {
	ct, ok := imageTypes[strings.ToLower(path.Ext(filename))]
	return ct, ok
}

// CoverKey generates unique object key for cover image keeping its extension.
func CoverKey(filename string) string {
	return CoversPrefix + uuid.NewString() + strings.ToLower(path.Ext(filename))
}

// NormalizeKey strips leading slashes and the legacy media/ prefix from stored path.
func NormalizeKey(p string) string {
	p = strings.TrimLeft(p, "/")
	return strings.TrimPrefix(p, "media/")
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config ...
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	// PublicURL is used as base of returned URLs. Virtual-hosted AWS URL is used if empty.
	PublicURL string
}

type s3Store struct {
	client    putObjectAPI
	bucket    string
	publicURL string
}

// NewS3 creates S3 store. It returns disabled store if bucket is empty.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	if cfg.Bucket == "" {
		return disabled{}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client putObjectAPI, cfg S3Config) *s3Store {
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &s3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}
}

func (s *s3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return s.publicURL + "/" + key, nil
}

type disabled struct{}

func (disabled) Put(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrDisabled
}
