// Package covers stores story cover images in S3-compatible object storage.
package covers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base URL readers fetch covers from; it defaults to
	// the bucket URL on the endpoint.
	PublicURL string
}

type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinio connects to the object store and creates the bucket if needed.
func NewMinio(ctx context.Context, cfg Config) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Minio{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: PublicBase(cfg),
	}, nil
}

// PublicBase returns the URL prefix under which objects of cfg.Bucket are served.
func PublicBase(cfg Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

// ObjectKey names a new cover object for storyID.
func ObjectKey(storyID, contentType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("stories/%s/%s%s", storyID, uuid.NewString(), ext)
}

func (m *Minio) Put(ctx context.Context, storyID, contentType string, body io.Reader, size int64) (string, string, error) {
	key := ObjectKey(storyID, contentType)
	_, err := m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", "", fmt.Errorf("put cover %s: %w", key, err)
	}
	return key, m.publicURL + "/" + key, nil
}

func (m *Minio) Remove(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove cover %s: %w", key, err)
	}
	return nil
}
