// Package redis implements a cache store on top of Redis hashes, which suits
// deployments that serve many small derived artifacts (thumbnails, avatars).
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/redis/go-redis/v9"
	"io"
	"sync"
)

const (
	fieldContentType  = "content-type"
	fieldCacheControl = "cache-control"
	fieldBlob         = "blob"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Redis struct {
	config Config

	client *redis.Client
	mtx    sync.Mutex
}

func New(config Config) *Redis {
	return &Redis{
		config: config,
	}
}

func (r *Redis) Connect(ctx context.Context) error {
	_, err := r.connect(ctx)

	return err
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return false, store.Unavailable(err, "check existence of", key)
	}

	n, err := client.Exists(ctx, key).Result()
	if err != nil {
		return false, store.Unavailable(err, "check existence of", key)
	}

	return n != 0, nil
}

func (r *Redis) Get(ctx context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	values, err := client.HMGet(ctx, key, fieldContentType, fieldCacheControl, fieldBlob).Result()
	if err != nil {
		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	blob, ok := values[2].(string)
	if !ok {
		return nil, store.Metadata{}, store.ErrNotFound
	}

	contentType, _ := values[0].(string)
	cacheControl, _ := values[1].(string)

	return io.NopCloser(bytes.NewReader([]byte(blob))), store.Metadata{
		ContentType:  contentType,
		CacheControl: cacheControl,
	}, nil
}

func (r *Redis) Put(ctx context.Context, key string, metadata store.Metadata, blobReader io.Reader) error {
	client, err := r.connect(ctx)
	if err != nil {
		return store.Unavailable(err, "store", key)
	}

	blob, err := io.ReadAll(blobReader)
	if err != nil {
		return store.Unavailable(err, "read the contents of", key)
	}

	// A single HSET is atomic, so readers never observe
	// the metadata without the contents and vice versa
	if err := client.HSet(ctx, key,
		fieldContentType, metadata.ContentType,
		fieldCacheControl, metadata.CacheControl,
		fieldBlob, blob,
	).Err(); err != nil {
		return store.Unavailable(err, "store", key)
	}

	return nil
}

func (r *Redis) Close() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil

	if err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}

	return nil
}

func (r *Redis) connect(ctx context.Context) (*redis.Client, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     r.config.Addr,
		Password: r.config.Password,
		DB:       r.config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping Redis at %s: %w", r.config.Addr, err)
	}

	r.client = client

	return client, nil
}
