package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vibevids/internal/domain"
)

// MinioOptions configures the S3-compatible object store. Backblaze B2's S3
// endpoint is the production target; any S3-compatible service (including a
// local MinIO) works the same way.
type MinioOptions struct {
	Endpoint  string // host or URL; https is assumed unless http:// is given
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// Minio is the S3-compatible ObjectStore implementation.
type Minio struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

// NewMinio initializes the S3 client. It does not touch the network; bucket
// existence is the operator's responsibility.
func NewMinio(opts MinioOptions) (*Minio, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	secure := !strings.HasPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("storage: endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init s3 client: %w", err)
	}

	return &Minio{
		client:   client,
		bucket:   opts.Bucket,
		endpoint: endpoint,
		secure:   secure,
	}, nil
}

func (s *Minio) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %q: %v: %w", key, err, domain.ErrStorageUnavailable)
	}
	return s.objectURL(key), nil
}

func (s *Minio) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: delete %q: %v: %w", key, err, domain.ErrStorageUnavailable)
	}
	return nil
}

func (s *Minio) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %q: %v: %w", key, err, domain.ErrStorageUnavailable)
	}
	return signed.String(), nil
}

// Owns recognizes both virtual-hosted (bucket.endpoint/key) and path-style
// (endpoint/bucket/key) URLs for this bucket.
func (s *Minio) Owns(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == s.bucket+"."+s.endpoint {
		return path, path != ""
	}
	if parsed.Host == s.endpoint {
		if key, ok := strings.CutPrefix(path, s.bucket+"/"); ok && key != "" {
			return key, true
		}
	}
	return "", false
}

func (s *Minio) objectURL(key string) string {
	scheme := "https"
	if !s.secure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.bucket, s.endpoint, key)
}

var _ ObjectStore = (*Minio)(nil)
