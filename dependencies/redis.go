package dependencies

import (
	"context"
	"fmt"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/config"
)

const (
	defaultRedisPoolSize      = 10
	defaultRedisRetries       = 5
	defaultRedisRetryInterval = 2 * time.Second
	redisPingTimeout          = 5 * time.Second
)

// InitRedis 创建会话存储使用的 Redis 客户端，启动时 PING 直到成功或重试用尽。
func InitRedis(cfg *config.RedisConfig, logger *core.ZapLogger) (*redis.Client, error) {
	opts := redisOptions(cfg)
	client := redis.NewClient(opts)

	retries, interval := cfg.ConnectRetries, cfg.RetryInterval
	if retries <= 0 {
		retries = defaultRedisRetries
	}
	if interval <= 0 {
		interval = defaultRedisRetryInterval
	}

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			logger.Info("Redis 已就绪", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
			return client, nil
		}
		logger.Warn("Redis PING 失败",
			zap.String("addr", opts.Addr),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", retries),
			zap.Error(err),
		)
		if attempt < retries {
			time.Sleep(interval)
		}
	}

	_ = client.Close()
	logger.Error("连接 Redis 失败", zap.String("addr", opts.Addr), zap.Error(err))
	return nil, fmt.Errorf("连接 Redis %s 失败: %w", opts.Addr, err)
}

func redisOptions(cfg *config.RedisConfig) *redis.Options {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultRedisPoolSize
	}
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     poolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}
