package s3

import (
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3pkg "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cirruslabs/mocha/internal/store"
	"io"
	"net/url"
	"sync"
)

type S3 struct {
	config Config

	client *s3pkg.Client
	mtx    sync.Mutex
}

type Config struct {
	Bucket string

	// Optional, the default AWS credential and region
	// resolution chain is used when these are empty
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	PathStyle       bool

	// Create the bucket on connect, only useful for testing
	CreateBucket bool
}

// New returns an S3-backed store. No requests are made
// until the first operation or an explicit Connect().
func New(config Config) *S3 {
	return &S3{
		config: config,
	}
}

func (s3 *S3) Connect(ctx context.Context) error {
	_, err := s3.connect(ctx)

	return err
}

func (s3 *S3) Exists(ctx context.Context, key string) (bool, error) {
	client, err := s3.connect(ctx)
	if err != nil {
		return false, store.Unavailable(err, "check existence of", key)
	}

	_, err = client.HeadObject(ctx, &s3pkg.HeadObjectInput{
		Bucket: aws.String(s3.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, store.Unavailable(err, "check existence of", key)
	}

	return true, nil
}

func (s3 *S3) Get(ctx context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	client, err := s3.connect(ctx)
	if err != nil {
		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	result, err := client.GetObject(ctx, &s3pkg.GetObjectInput{
		Bucket: aws.String(s3.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, store.Metadata{}, store.ErrNotFound
		}

		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	return result.Body, store.Metadata{
		ContentType:  aws.ToString(result.ContentType),
		CacheControl: aws.ToString(result.CacheControl),
	}, nil
}

func (s3 *S3) Put(ctx context.Context, key string, metadata store.Metadata, blobReader io.Reader) error {
	client, err := s3.connect(ctx)
	if err != nil {
		return store.Unavailable(err, "store", key)
	}

	input := &s3pkg.PutObjectInput{
		Bucket: aws.String(s3.config.Bucket),
		Key:    aws.String(key),
		Body:   blobReader,
	}

	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}

	if metadata.CacheControl != "" {
		input.CacheControl = aws.String(metadata.CacheControl)
	}

	// PutObject is atomic: readers either see the previous
	// object or the new one, never a partially written one
	if _, err := client.PutObject(ctx, input); err != nil {
		return store.Unavailable(err, "store", key)
	}

	return nil
}

func (s3 *S3) connect(ctx context.Context) (*s3pkg.Client, error) {
	s3.mtx.Lock()
	defer s3.mtx.Unlock()

	if s3.client != nil {
		return s3.client, nil
	}

	client, err := newClient(ctx, s3.config)
	if err != nil {
		return nil, err
	}

	if s3.config.CreateBucket {
		_, err := client.CreateBucket(ctx, &s3pkg.CreateBucketInput{
			Bucket: aws.String(s3.config.Bucket),
		})
		if err != nil && !isBucketAlreadyPresent(err) {
			return nil, fmt.Errorf("failed to create bucket %q: %w", s3.config.Bucket, err)
		}
	}

	s3.client = client

	return client, nil
}

func newClient(ctx context.Context, cfg Config) (*s3pkg.Client, error) {
	var loadOpts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	var clientOpts []func(*s3pkg.Options)

	if cfg.Endpoint != "" {
		endpointURL, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to parse S3 endpoint %q: %w", cfg.Endpoint, err)
		}

		clientOpts = append(clientOpts, func(options *s3pkg.Options) {
			options.EndpointResolverV2 = &endpointResolver{
				url:       endpointURL,
				pathStyle: cfg.PathStyle,
			}
		})
	}

	return s3pkg.NewFromConfig(awsConfig, clientOpts...), nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey

	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	// HEAD responses carry no body, so some S3-compatible
	// services only surface the bare error code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	return false
}

func isBucketAlreadyPresent(err error) bool {
	var alreadyExists *types.BucketAlreadyExists
	var alreadyOwnedByYou *types.BucketAlreadyOwnedByYou

	return errors.As(err, &alreadyExists) || errors.As(err, &alreadyOwnedByYou)
}
