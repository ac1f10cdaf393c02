// Package redis Redis 限流实现
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"accounts-admin/internal/shared/cache"

	"github.com/redis/go-redis/v9"
)

// keyPrefix 限流键前缀
const keyPrefix = "otp:cooldown:"

// DefaultCooldown 默认重发冷却时间
const DefaultCooldown = 60 * time.Second

// Limiter 基于 Redis SET NX 的重发限流器
//
// 每个 key 在冷却期内只能申请到一次配额，键到期自动释放。
type Limiter struct {
	client   *redis.Client
	cooldown time.Duration
}

var _ cache.ResendLimiter = (*Limiter)(nil)

// NewLimiter 从 URL 创建 Redis 限流器
func NewLimiter(redisURL string, cooldown time.Duration) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	log.Printf("[Redis/Limiter] Connected to %s (cooldown=%s)", opts.Addr, cooldown)
	return &Limiter{client: client, cooldown: cooldown}, nil
}

// NewLimiterFromClient 从现有 Redis 客户端创建限流器
func NewLimiterFromClient(client *redis.Client, cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Limiter{client: client, cooldown: cooldown}
}

// Allow 申请一次下发配额
// SET NX 成功表示拿到配额，键存在表示仍在冷却期
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), l.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("limiter setnx: %w", err)
	}
	return ok, nil
}

// Close 关闭 Redis 连接
func (l *Limiter) Close() error {
	return l.client.Close()
}
