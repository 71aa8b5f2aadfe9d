package cache

import (
	"go.uber.org/zap"

	"github.com/scancheckout/backend/internal/domain/scan"
)

// ScanRepositoryFactory picks between the Redis and in-memory repositories.
type ScanRepositoryFactory struct {
	redisConfig           RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ScanRepositoryFactoryOption configures the factory.
type ScanRepositoryFactoryOption func(*ScanRepositoryFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ScanRepositoryFactoryOption {
	return func(f *ScanRepositoryFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory repository. Default is true.
func WithInMemoryFallback(allow bool) ScanRepositoryFactoryOption {
	return func(f *ScanRepositoryFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewScanRepositoryFactory creates a factory for cfg.
func NewScanRepositoryFactory(cfg RedisConfig, opts ...ScanRepositoryFactoryOption) *ScanRepositoryFactory {
	f := &ScanRepositoryFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis repository, or the in-memory one when Redis is
// unreachable and fallback is allowed.
func (f *ScanRepositoryFactory) Create() (scan.Repository, error) {
	repo, err := NewRedisScanRepository(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis scan repository",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return repo, nil
	}
	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory scan repository",
		zap.Error(err),
	)
	return NewInMemoryScanRepository(), nil
}
