// Package model 定义核心数据模型
//
// user.go 包含账号相关的数据模型定义：
//   - User：平台账号（普通用户 / 管理员 / 超级管理员）
//   - UserRole：角色枚举
//   - UserStatus：账号状态枚举
package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super-admin"
)

// ValidRole 检查角色是否合法
func ValidRole(r UserRole) bool {
	switch r {
	case UserRoleUser, UserRoleAdmin, UserRoleSuperAdmin:
		return true
	}
	return false
}

// UserStatus 账号状态
type UserStatus string

const (
	// UserStatusPending 已注册但邮箱未验证
	UserStatusPending UserStatus = "pending"

	// UserStatusActive 正常使用
	UserStatusActive UserStatus = "active"

	// UserStatusBlocked 被管理员封禁
	UserStatusBlocked UserStatus = "blocked"
)

// ValidStatus 检查账号状态是否合法
func ValidStatus(s UserStatus) bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusBlocked:
		return true
	}
	return false
}

// User 平台账号
//
// 邮箱全局唯一（写入前统一小写 + 去空格），密码只存 bcrypt 哈希。
// PasswordHash 永远不出现在 JSON 响应中。
type User struct {
	ID           string     `json:"id" bson:"_id" db:"id"`
	Email        string     `json:"email" bson:"email" db:"email"`
	Username     string     `json:"username" bson:"username" db:"username"`
	Phone        *string    `json:"phone,omitempty" bson:"phone,omitempty" db:"phone"`
	PasswordHash string     `json:"-" bson:"password_hash" db:"password_hash"`
	Role         UserRole   `json:"role" bson:"role" db:"role"`
	Status       UserStatus `json:"status" bson:"status" db:"status"`
	IsVerified   bool       `json:"is_verified" bson:"is_verified" db:"is_verified"`
	AvatarKey    *string    `json:"avatar_key,omitempty" bson:"avatar_key,omitempty" db:"avatar_key"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at" db:"updated_at"`
}

// PublicUser 对外返回的账号投影（不含任何凭证字段）
type PublicUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Phone       *string    `json:"phone,omitempty"`
	Role        UserRole   `json:"role"`
	Status      UserStatus `json:"status"`
	IsVerified  bool       `json:"is_verified"`
	AvatarKey   *string    `json:"avatar_key,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Sanitize 返回脱敏后的账号投影
func (u *User) Sanitize() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Phone:       u.Phone,
		Role:        u.Role,
		Status:      u.Status,
		IsVerified:  u.IsVerified,
		AvatarKey:   u.AvatarKey,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// UserFilter 账号列表查询条件
type UserFilter struct {
	Role   UserRole   // 为空时不过滤
	Status UserStatus // 为空时不过滤
	Search string     // username / email 子串匹配
	Page   int        // 从 1 开始
	Limit  int        // 每页条数
}

// Normalize 填充分页默认值
func (f *UserFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
}

// Offset 返回分页偏移
func (f *UserFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
