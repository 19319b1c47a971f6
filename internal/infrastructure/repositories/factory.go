package repositories

import (
	"context"

	"roomrelay/internal/core/ports"
	"roomrelay/internal/infrastructure/repositories/memory"
	redisrepo "roomrelay/internal/infrastructure/repositories/redis"
	"roomrelay/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory builds the in-memory relay state and, when configured,
// the Redis client used by the activity feed. An unreachable Redis is not
// fatal: the relay runs without the feed.
type RepositoryFactory struct {
	registry    ports.ConnectionRegistry
	directory   ports.RoomDirectory
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	factory := &RepositoryFactory{
		registry:  memory.NewMemoryConnectionRegistry(),
		directory: memory.NewMemoryRoomDirectory(),
		logger:    logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(ctx, redisrepo.ClientOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, room activity feed disabled",
				"error", err,
			)
		} else {
			factory.redisClient = client
		}
	}

	return factory
}

func (f *RepositoryFactory) ConnectionRegistry() ports.ConnectionRegistry {
	return f.registry
}

func (f *RepositoryFactory) RoomDirectory() ports.RoomDirectory {
	return f.directory
}

// RedisClient returns nil when Redis is disabled or unreachable.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) Close() error {
	return redisrepo.CloseRedisClient(f.redisClient)
}
