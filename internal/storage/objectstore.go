// Package storage holds the S3-compatible object store client backing
// document uploads. Callers validate type and size before anything reaches
// this package; stored objects are referenced by URL only.
package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	// PublicBaseURL overrides URL construction when objects are served
	// through a CDN or reverse proxy, e.g. "https://files.example.com".
	PublicBaseURL string
}

type ObjectStore struct {
	raw           *minio.Client
	endpoint      string
	bucket        string
	prefix        string
	useSSL        bool
	publicBaseURL string
}

func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &ObjectStore{
		raw:           client,
		endpoint:      cfg.Endpoint,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		useSSL:        cfg.UseSSL,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put stores data under a collision-free key derived from keyHint and returns
// the public reference URL recorded on the submission.
func (s *ObjectStore) Put(ctx context.Context, keyHint string, data []byte, contentType string) (string, error) {
	if s.raw == nil {
		return "", fmt.Errorf("object store client is nil")
	}

	// random prefix avoids collisions and key guessing
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate object key: %w", err)
	}
	key := s.prefix + hex.EncodeToString(randBytes) + "_" + path.Base(keyHint)

	reader := bytes.NewReader(data)
	_, err := s.raw.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q failed: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// PublicURL builds the reference URL for a stored key. With PublicBaseURL set
// the URL points at the configured host, otherwise at the endpoint directly.
func (s *ObjectStore) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// PresignedURL returns a time-limited GET URL for a stored key, for buckets
// that are not publicly readable.
func (s *ObjectStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.raw == nil {
		return "", fmt.Errorf("object store client is nil")
	}

	u, err := s.raw.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get object %q failed: %w", key, err)
	}
	return u.String(), nil
}
