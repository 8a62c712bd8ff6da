package common

import (
	"fmt"
	"strings"

	"github.com/bids-apps/batch-wrapper/network"
	"github.com/bids-apps/batch-wrapper/util/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/op/go-logging"
)

// Context holds the config and the clients a job needs. The S3 client
// is always present. Redis and NSQ clients are nil unless configured.
type Context struct {
	Config      *Config
	Logger      *logging.Logger
	NSQClient   *network.NSQClient
	RedisClient *network.RedisClient
	S3Client    *minio.Client
}

// NewContext creates a Context for config, logging to stderr and to
// config.LogDir, if set.
func NewContext(config *Config) (*Context, error) {
	_logger, _, err := logger.InitLogger(config.LogDir, config.LogLevel)
	if err != nil {
		return nil, NewError("Cannot initialize logger", err, true)
	}
	return NewContextWithLogger(config, _logger)
}

// NewContextWithLogger creates a Context that logs to _logger.
func NewContextWithLogger(config *Config, _logger *logging.Logger) (*Context, error) {
	s3Client, err := getS3Client(config)
	if err != nil {
		return nil, NewError(fmt.Sprintf("Could not initialize S3 client for %s", config.S3Host), err, true)
	}
	if config.LogLevel == logging.DEBUG {
		s3Client.TraceOn(GetTracer(_logger))
	}
	return &Context{
		Config:      config,
		Logger:      _logger,
		NSQClient:   getNsqClient(config),
		RedisClient: getRedisClient(config),
		S3Client:    s3Client,
	}, nil
}

func getNsqClient(config *Config) *network.NSQClient {
	if !config.NsqEnabled() {
		return nil
	}
	return network.NewNSQClient(config.NsqURL)
}

func getRedisClient(config *Config) *network.RedisClient {
	if !config.RedisEnabled() {
		return nil
	}
	return network.NewRedisClient(
		config.RedisURL,
		config.RedisPassword,
		config.RedisDefaultDB)
}

// getS3Client returns a client for the dataset bucket's S3 service.
// Path-style lookup keeps us compatible with non-AWS providers.
func getS3Client(config *Config) (*minio.Client, error) {
	host := strings.TrimPrefix(strings.TrimPrefix(config.S3Host, "https://"), "http://")
	return minio.New(
		host,
		&minio.Options{
			Creds:        credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
			Secure:       config.S3UseSSL,
			BucketLookup: minio.BucketLookupPath,
		})
}

// Close releases network connections held by the context.
func (context *Context) Close() error {
	if context.RedisClient != nil {
		return context.RedisClient.Close()
	}
	return nil
}
