// Package minio implements a store on top of the MinIO client, which speaks
// to any S3-compatible service (MinIO, Ceph RGW, R2, the GCS XML API).
package minio

import (
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"io"
	"sync"
)

type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Create the bucket on connect, only useful for testing
	CreateBucket bool
}

type MinIO struct {
	config Config

	client *minio.Client
	mtx    sync.Mutex
}

func New(config Config) *MinIO {
	return &MinIO{
		config: config,
	}
}

func (m *MinIO) Connect(ctx context.Context) error {
	_, err := m.connect(ctx)

	return err
}

func (m *MinIO) Exists(ctx context.Context, key string) (bool, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return false, store.Unavailable(err, "check existence of", key)
	}

	if _, err := client.StatObject(ctx, m.config.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, store.Unavailable(err, "check existence of", key)
	}

	return true, nil
}

func (m *MinIO) Get(ctx context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	object, err := client.GetObject(ctx, m.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	// GetObject() is lazy, the request is only made on the first
	// read or Stat(), so use the latter to surface errors early
	info, err := object.Stat()
	if err != nil {
		_ = object.Close()

		if isNotFound(err) {
			return nil, store.Metadata{}, store.ErrNotFound
		}

		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	return object, store.Metadata{
		ContentType:  info.ContentType,
		CacheControl: info.Metadata.Get("Cache-Control"),
	}, nil
}

func (m *MinIO) Put(ctx context.Context, key string, metadata store.Metadata, blobReader io.Reader) error {
	client, err := m.connect(ctx)
	if err != nil {
		return store.Unavailable(err, "store", key)
	}

	// Unknown size makes the client buffer the contents and fall back to a
	// multipart upload for large objects, which is still only visible once complete
	_, err = client.PutObject(ctx, m.config.Bucket, key, blobReader, -1, minio.PutObjectOptions{
		ContentType:  metadata.ContentType,
		CacheControl: metadata.CacheControl,
	})
	if err != nil {
		return store.Unavailable(err, "store", key)
	}

	return nil
}

func (m *MinIO) connect(ctx context.Context) (*minio.Client, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	client, err := minio.New(m.config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(m.config.AccessKey, m.config.SecretKey, ""),
		Secure: m.config.UseSSL,
		Region: m.config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if m.config.CreateBucket {
		exists, err := client.BucketExists(ctx, m.config.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check existence of bucket %q: %w", m.config.Bucket, err)
		}

		if !exists {
			if err := client.MakeBucket(ctx, m.config.Bucket, minio.MakeBucketOptions{
				Region: m.config.Region,
			}); err != nil {
				return nil, fmt.Errorf("failed to create bucket %q: %w", m.config.Bucket, err)
			}
		}
	}

	m.client = client

	return client, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}
