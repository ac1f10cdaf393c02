// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：repository/（SQL，经 dbutil.Dialect 适配
//     PostgreSQL 与 SQLite）、mongostore/（MongoDB）
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"
	"time"

	"accounts-admin/internal/shared/model"
)

// UserStore 账号存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail 按邮箱查找，调用方负责先归一化邮箱。
	// 不存在时返回 (nil, nil)。
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, int, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error
	UpdateUserVerified(ctx context.Context, id string, verified bool) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	UpdateUserAvatar(ctx context.Context, id, avatarKey string) error
	UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

// OTPStore 验证码存储接口
//
// 同一 (user_id, purpose) 只保留一条记录，Upsert 整条覆盖（后写者胜）。
type OTPStore interface {
	UpsertChallenge(ctx context.Context, c *model.OTPChallenge) error
	// GetChallenge 不存在时返回 (nil, nil)
	GetChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) (*model.OTPChallenge, error)
	DeleteChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) error
}

// Store 持久化存储组合接口
type Store interface {
	UserStore
	OTPStore
	Close() error
}
