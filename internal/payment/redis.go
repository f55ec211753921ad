package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "ChainSentry/internal/errors"
)

// RedisGuardConfig 描述 Redis 重放防护的连接参数。
type RedisGuardConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisGuard 把已消费的支付引用写入 Redis,供多实例共享。
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGuard 创建 Redis 版重放防护。
func NewRedisGuard(cfg RedisGuardConfig) (*RedisGuard, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sentry:payment:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}, nil
}

var _ Guard = (*RedisGuard)(nil)

// IsUsed 查询引用是否已被消费。过期键由 Redis 自行回收。
func (g *RedisGuard) IsUsed(ctx context.Context, ref string) (bool, error) {
	key := NormalizeRef(ref)
	if key == "" {
		return false, ErrEmptyRef
	}
	count, err := g.client.Exists(ctx, g.prefix+key).Result()
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询支付引用失败")
	}
	return count > 0, nil
}

// Claim 原子地声明引用。SetNX 保证多实例并发下同名声明只有一个成功。
func (g *RedisGuard) Claim(ctx context.Context, ref string) (bool, error) {
	key := NormalizeRef(ref)
	if key == "" {
		return false, ErrEmptyRef
	}
	claimed, err := g.client.SetNX(ctx, g.prefix+key, "1", g.ttl).Result()
	if err != nil {
		return false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "声明支付引用失败")
	}
	return claimed, nil
}

// Release 释放一次声明。
func (g *RedisGuard) Release(ctx context.Context, ref string) error {
	key := NormalizeRef(ref)
	if key == "" {
		return ErrEmptyRef
	}
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "释放支付引用失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (g *RedisGuard) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
