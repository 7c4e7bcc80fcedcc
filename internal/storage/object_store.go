package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
)

type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage.endpoint is required")
	}
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{client: client, cfg: cfg}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// ObjectKey is <prefix>/<resource>/<YYYY-MM-DD>/<id>.json.
func (s *ObjectStore) ObjectKey(snap Snapshot) string {
	return objectKey(s.cfg.Prefix, snap)
}

func objectKey(prefix string, snap Snapshot) string {
	return path.Join(strings.Trim(prefix, "/"), snap.Resource, snap.ExportedAt.Format("2006-01-02"), snap.ID+".json")
}

// ExportSnapshot uploads the snapshot and returns its s3:// location.
func (s *ObjectStore) ExportSnapshot(ctx context.Context, snap Snapshot) (string, error) {
	if err := s.EnsureBucket(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return "", err
	}

	key := s.ObjectKey(snap)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"resource": snap.Resource,
			"count":    fmt.Sprint(snap.Count),
		},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return "s3://" + s.cfg.Bucket + "/" + key, nil
}
