// Package cache 缓存层抽象接口
//
// 提供验证码重发限流能力，当前由 Redis 实现。
package cache

import "context"

// ResendLimiter 验证码重发限流接口
//
// Allow 对 key 申请一次配额：冷却期内再次申请返回 false。
// 限流器不可用时的降级策略由调用方决定。
type ResendLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// NoOpLimiter 空限流器（测试或未配置 Redis 时使用，所有请求放行）
type NoOpLimiter struct{}

// NewNoOpLimiter 创建空限流器
func NewNoOpLimiter() *NoOpLimiter {
	return &NoOpLimiter{}
}

func (l *NoOpLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (l *NoOpLimiter) Close() error {
	return nil
}

var _ ResendLimiter = (*NoOpLimiter)(nil)
