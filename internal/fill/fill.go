// Package fill serves assets from the origin store, transforming images on
// demand and persisting the results in the cache store so that each distinct
// transformation is computed once.
package fill

import (
	"bytes"
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/cirruslabs/mocha/internal/cachekey"
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/cirruslabs/mocha/internal/opentelemetry"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/cirruslabs/mocha/internal/transform"
	"github.com/dustin/go-humanize"
	"github.com/im7mortal/kmutex"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"io"
	"net/url"
	"time"
)

const (
	CacheControlImmutable = "public, max-age=31536000, immutable"
	CacheControlNoStore   = "no-store"
)

const (
	DefaultStoreTimeout     = 10 * time.Second
	DefaultTransformTimeout = 30 * time.Second
	DefaultMaxOriginSize    = 50 * humanize.MByte
)

// Source tells where the served bytes came from.
type Source string

const (
	SourceOrigin Source = "origin"
	SourceCache  Source = "cache"
	SourceFill   Source = "fill"
)

// SizelessPolicy decides what happens to a transformable asset
// requested without any transform parameters.
type SizelessPolicy string

const (
	// SizelessOriginal serves the original bytes untouched.
	SizelessOriginal SizelessPolicy = "original"

	// SizelessTransform re-encodes the original using the default
	// format and quality.
	SizelessTransform SizelessPolicy = "transform"
)

func ParseSizelessPolicy(raw string) (SizelessPolicy, error) {
	switch policy := SizelessPolicy(raw); policy {
	case "":
		return SizelessOriginal, nil
	case SizelessOriginal, SizelessTransform:
		return policy, nil
	default:
		return "", fmt.Errorf("unsupported size-less policy %q, expected %q or %q",
			raw, SizelessOriginal, SizelessTransform)
	}
}

type Request struct {
	Path  string
	Query url.Values
}

type Response struct {
	ContentType  string
	CacheControl string

	// ContentLength is -1 when unknown.
	ContentLength int64
	Body          io.ReadCloser

	Source Source

	// Key is the cache key of the transformed artifact,
	// empty for pass-through responses.
	Key string
}

type Orchestrator struct {
	origin store.Reader
	cache  store.Store
	engine transform.Engine
	kmutex *kmutex.Kmutex
	logger *zap.SugaredLogger
	meter  metric.Meter

	maxDimension     int
	maxOriginSize    uint64
	sizeless         SizelessPolicy
	singleFlight     bool
	storeTimeout     time.Duration
	transformTimeout time.Duration

	// Metrics
	cacheOperationCounter metric.Int64Counter
}

func New(origin store.Reader, cache store.Store, engine transform.Engine, opts ...Option) *Orchestrator {
	orchestrator := &Orchestrator{
		origin: origin,
		cache:  cache,
		engine: engine,
		kmutex: kmutex.New(),

		maxDimension:     asset.DefaultMaxDimension,
		maxOriginSize:    DefaultMaxOriginSize,
		sizeless:         SizelessOriginal,
		singleFlight:     true,
		storeTimeout:     DefaultStoreTimeout,
		transformTimeout: DefaultTransformTimeout,
	}

	// Apply options
	for _, opt := range opts {
		opt(orchestrator)
	}

	// Apply defaults
	if orchestrator.logger == nil {
		orchestrator.logger = zap.NewNop().Sugar()
	}

	if orchestrator.meter == nil {
		orchestrator.meter = opentelemetry.DefaultMeter
	}

	// Metrics
	orchestrator.cacheOperationCounter = opentelemetry.Int64Counter(orchestrator.meter,
		"org.cirruslabs.mocha.cache.operation_count")

	return orchestrator
}

// Serve resolves the request to a response. The caller must close the
// response body. Errors are classified with the failure package.
func (orchestrator *Orchestrator) Serve(ctx context.Context, request Request) (*Response, error) {
	assetPath, err := asset.NormalizePath(request.Path)
	if err != nil {
		return nil, err
	}

	if asset.Classify(assetPath) == asset.PassThrough {
		return orchestrator.servePassThrough(ctx, assetPath)
	}

	if orchestrator.sizeless == SizelessOriginal && asset.Sizeless(request.Query) {
		return orchestrator.servePassThrough(ctx, assetPath)
	}

	// Parameters are validated before any store is touched
	params, err := asset.ParseParams(request.Query, asset.ParseOptions{
		MaxDimension: orchestrator.maxDimension,
	})
	if err != nil {
		return nil, err
	}

	key := cachekey.Derive(assetPath, params)

	response, err := orchestrator.lookup(ctx, key, params.Format)
	if err != nil || response != nil {
		return response, err
	}

	if orchestrator.singleFlight {
		orchestrator.kmutex.Lock(key)
		defer orchestrator.kmutex.Unlock(key)

		// Someone else might have filled the key while we were waiting
		response, err := orchestrator.lookup(ctx, key, params.Format)
		if err != nil || response != nil {
			return response, err
		}
	}

	orchestrator.countCacheOperation("miss")

	return orchestrator.fill(ctx, assetPath, key, params)
}

func (orchestrator *Orchestrator) servePassThrough(ctx context.Context, assetPath string) (*Response, error) {
	exists, err := orchestrator.exists(ctx, orchestrator.origin, assetPath)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, failure.NotFound("asset %q does not exist", assetPath)
	}

	body, metadata, err := orchestrator.get(ctx, orchestrator.origin, assetPath)
	if err != nil {
		return nil, err
	}

	contentType := metadata.ContentType
	if contentType == "" {
		contentType = asset.ContentType(assetPath)
	}

	return &Response{
		ContentType:   contentType,
		CacheControl:  CacheControlImmutable,
		ContentLength: -1,
		Body:          body,
		Source:        SourceOrigin,
	}, nil
}

// lookup returns a response for the cached artifact, or nil if there's none.
// Only hits are counted, a miss is counted once the caller commits to a fill.
func (orchestrator *Orchestrator) lookup(ctx context.Context, key string, format asset.Format) (*Response, error) {
	exists, err := orchestrator.exists(ctx, orchestrator.cache, key)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, nil
	}

	body, metadata, err := orchestrator.get(ctx, orchestrator.cache, key)
	if err != nil {
		// The artifact was removed externally between the two calls
		if failure.IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	orchestrator.countCacheOperation("hit")

	contentType := metadata.ContentType
	if contentType == "" {
		contentType = format.ContentType()
	}

	return &Response{
		ContentType:   contentType,
		CacheControl:  CacheControlImmutable,
		ContentLength: -1,
		Body:          body,
		Source:        SourceCache,
		Key:           key,
	}, nil
}

func (orchestrator *Orchestrator) fill(
	ctx context.Context,
	assetPath string,
	key string,
	params asset.Params,
) (*Response, error) {
	startedAt := time.Now()

	exists, err := orchestrator.exists(ctx, orchestrator.origin, assetPath)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, failure.NotFound("asset %q does not exist", assetPath)
	}

	original, err := orchestrator.download(ctx, assetPath)
	if err != nil {
		return nil, err
	}

	transformCtx, transformCancel := context.WithTimeout(ctx, orchestrator.transformTimeout)
	defer transformCancel()

	transformed, err := orchestrator.engine.Transform(transformCtx, original, params)
	if err != nil {
		if !failure.IsTransformFailed(err) {
			err = failure.TransformFailed(err, "failed to transform asset %q", assetPath)
		}

		return nil, err
	}

	metadata := store.Metadata{
		ContentType:  params.Format.ContentType(),
		CacheControl: CacheControlImmutable,
	}

	if err := orchestrator.put(ctx, key, metadata, transformed); err != nil {
		return nil, err
	}

	orchestrator.countCacheOperation("fill")

	orchestrator.logger.Infof("filled %s from %s (%s -> %s) in %v", key, assetPath,
		humanize.IBytes(uint64(len(original))), humanize.IBytes(uint64(len(transformed))),
		time.Since(startedAt))

	return &Response{
		ContentType:   metadata.ContentType,
		CacheControl:  CacheControlImmutable,
		ContentLength: int64(len(transformed)),
		Body:          io.NopCloser(bytes.NewReader(transformed)),
		Source:        SourceFill,
		Key:           key,
	}, nil
}

// download reads the whole original into memory, refusing to go
// over the configured size limit.
func (orchestrator *Orchestrator) download(ctx context.Context, assetPath string) ([]byte, error) {
	body, _, err := orchestrator.get(ctx, orchestrator.origin, assetPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = body.Close()
	}()

	original, err := io.ReadAll(io.LimitReader(body, int64(orchestrator.maxOriginSize)+1))
	if err != nil {
		return nil, store.Unavailable(err, "read", assetPath)
	}

	if uint64(len(original)) > orchestrator.maxOriginSize {
		return nil, failure.TransformFailed(fmt.Errorf("asset exceeds %s",
			humanize.IBytes(orchestrator.maxOriginSize)), "refusing to transform asset %q", assetPath)
	}

	return original, nil
}

func (orchestrator *Orchestrator) countCacheOperation(operation string) {
	//nolint:contextcheck // the request context might be canceled by now
	orchestrator.cacheOperationCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
