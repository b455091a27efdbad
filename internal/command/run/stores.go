package run

import (
	"fmt"
	configpkg "github.com/cirruslabs/mocha/internal/config"
	"github.com/cirruslabs/mocha/internal/store"
	diskpkg "github.com/cirruslabs/mocha/internal/store/disk"
	"github.com/cirruslabs/mocha/internal/store/fsys"
	"github.com/cirruslabs/mocha/internal/store/memory"
	miniopkg "github.com/cirruslabs/mocha/internal/store/minio"
	"github.com/cirruslabs/mocha/internal/store/noop"
	redispkg "github.com/cirruslabs/mocha/internal/store/redis"
	s3pkg "github.com/cirruslabs/mocha/internal/store/s3"
	"github.com/cirruslabs/mocha/internal/store/upstream"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func newOrigin(config configpkg.Origin) (store.Reader, error) {
	switch {
	case config.S3 != nil:
		return s3pkg.New(s3Config(config.S3)), nil
	case config.MinIO != nil:
		return miniopkg.New(minioConfig(config.MinIO)), nil
	case config.Dir != "":
		return fsys.New(config.Dir)
	case config.Upstream != nil:
		return upstream.New(config.Upstream.URL, upstream.WithSecret(config.Upstream.Secret))
	default:
		return nil, fmt.Errorf("no origin configured")
	}
}

func newCache(config configpkg.Cache) (store.Store, error) {
	switch {
	case config.S3 != nil:
		return s3pkg.New(s3Config(config.S3)), nil
	case config.MinIO != nil:
		return miniopkg.New(minioConfig(config.MinIO)), nil
	case config.Disk != nil:
		limitBytes, err := humanize.ParseBytes(config.Disk.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to parse disk limit value %q: %w", config.Disk.Limit, err)
		}

		return diskpkg.New(config.Disk.Dir, limitBytes)
	case config.Redis != nil:
		return redispkg.New(redispkg.Config{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		}), nil
	case config.None:
		zap.S().Warnf("caching is disabled, every transformation will be computed from scratch")

		return noop.New(), nil
	default:
		if !config.Memory {
			zap.S().Infof("no cache configured, using an in-memory cache")
		}

		return memory.New(), nil
	}
}

func s3Config(config *configpkg.S3) s3pkg.Config {
	return s3pkg.Config{
		Bucket:          config.Bucket,
		Endpoint:        config.Endpoint,
		Region:          config.Region,
		AccessKeyID:     config.AccessKeyID,
		AccessKeySecret: config.AccessKeySecret,
		PathStyle:       config.PathStyle,
	}
}

func minioConfig(config *configpkg.MinIO) miniopkg.Config {
	return miniopkg.Config{
		Endpoint:  config.Endpoint,
		Bucket:    config.Bucket,
		Region:    config.Region,
		AccessKey: config.AccessKey,
		SecretKey: config.SecretKey,
		UseSSL:    config.UseSSL,
	}
}
