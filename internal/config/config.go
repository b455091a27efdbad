package config

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"time"
)

type Config struct {
	Addr              string        `yaml:"addr"`
	Origin            Origin        `yaml:"origin"`
	Cache             Cache         `yaml:"cache"`
	Transform         Transform     `yaml:"transform"`
	StoreTimeout      time.Duration `yaml:"store-timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read-header-timeout"`
	SingleFlight      *bool         `yaml:"single-flight"`
}

type Origin struct {
	S3       *S3       `yaml:"s3"`
	MinIO    *MinIO    `yaml:"minio"`
	Dir      string    `yaml:"dir"`
	Upstream *Upstream `yaml:"upstream"`
}

type Cache struct {
	S3     *S3    `yaml:"s3"`
	MinIO  *MinIO `yaml:"minio"`
	Disk   *Disk  `yaml:"disk"`
	Redis  *Redis `yaml:"redis"`
	Memory bool   `yaml:"memory"`
	None   bool   `yaml:"none"`
}

type S3 struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	PathStyle       bool   `yaml:"path-style"`
}

type MinIO struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	UseSSL    bool   `yaml:"use-ssl"`
}

type Disk struct {
	Dir   string `yaml:"dir"`
	Limit string `yaml:"limit"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Upstream struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

type Transform struct {
	MaxDimension  int           `yaml:"max-dimension"`
	MaxOriginSize string        `yaml:"max-origin-size"`
	MaxPixels     uint64        `yaml:"max-pixels"`
	Sizeless      string        `yaml:"sizeless"`
	Timeout       time.Duration `yaml:"timeout"`
	Filter        string        `yaml:"filter"`
	AVIFSpeed     *int          `yaml:"avif-speed"`
}

// Parse reads the configuration, expanding ${VAR} references
// to environment variables beforehand.
func Parse(r io.Reader) (*Config, error) {
	configBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var config Config

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(configBytes))), &config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (config *Config) validate() error {
	var origins int

	for _, configured := range []bool{
		config.Origin.S3 != nil,
		config.Origin.MinIO != nil,
		config.Origin.Dir != "",
		config.Origin.Upstream != nil,
	} {
		if configured {
			origins++
		}
	}

	if origins != 1 {
		return fmt.Errorf("exactly one origin (s3, minio, dir or upstream) needs to be configured, "+
			"found %d", origins)
	}

	var caches int

	for _, configured := range []bool{
		config.Cache.S3 != nil,
		config.Cache.MinIO != nil,
		config.Cache.Disk != nil,
		config.Cache.Redis != nil,
		config.Cache.Memory,
		config.Cache.None,
	} {
		if configured {
			caches++
		}
	}

	if caches > 1 {
		return fmt.Errorf("at most one cache (s3, minio, disk, redis, memory or none) can be configured, "+
			"found %d", caches)
	}

	if config.Transform.MaxDimension < 0 {
		return fmt.Errorf("transform.max-dimension cannot be negative")
	}

	if speed := config.Transform.AVIFSpeed; speed != nil && (*speed < 0 || *speed > 10) {
		return fmt.Errorf("transform.avif-speed should be in range [0, 10], got %d", *speed)
	}

	return nil
}
