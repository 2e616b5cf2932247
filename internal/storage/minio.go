// Package storage archives audit artifacts in S3-compatible object
// storage. The home page HTML of every completed audit is kept so a
// reviewer can see exactly what the engine saw.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/karalisweb/leadaudit/internal/config"
)

// SnapshotArchive stores and retrieves audit HTML snapshots.
type SnapshotArchive struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewSnapshotArchive creates an archive on the configured bucket.
func NewSnapshotArchive(cfg config.StorageConfig) (*SnapshotArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &SnapshotArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.SnapshotPath,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *SnapshotArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket existence: %w", err)
	}

	if !exists {
		err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}

	return nil
}

// snapshotKey builds the object key for one audit run. Re-audits archive
// under a new timestamped key instead of overwriting history.
func (a *SnapshotArchive) snapshotKey(leadID uuid.UUID, fetchedAt time.Time) string {
	return path.Join(a.prefix, leadID.String(), fetchedAt.UTC().Format("20060102T150405Z")+".html")
}

// Store archives one home page snapshot and returns its S3 URI.
func (a *SnapshotArchive) Store(ctx context.Context, leadID uuid.UUID, html string, fetchedAt time.Time) (string, error) {
	key := a.snapshotKey(leadID, fetchedAt)
	reader := bytes.NewReader([]byte(html))

	_, err := a.client.PutObject(ctx, a.bucket, key, reader, int64(len(html)), minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// Download retrieves an archived snapshot by key.
func (a *SnapshotArchive) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

// ListForLead lists all archived snapshot keys of a lead, oldest first.
func (a *SnapshotArchive) ListForLead(ctx context.Context, leadID uuid.UUID) ([]string, error) {
	var keys []string

	objectCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    path.Join(a.prefix, leadID.String()) + "/",
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}

// Delete removes an archived snapshot.
func (a *SnapshotArchive) Delete(ctx context.Context, key string) error {
	return a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{})
}

// PresignedURL returns a time-limited download link for a snapshot.
func (a *SnapshotArchive) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := a.client.PresignedGetObject(ctx, a.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("generating presigned URL: %w", err)
	}
	return url.String(), nil
}
