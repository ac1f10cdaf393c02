// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 各驱动实现（repository/mongostore）负责将底层错误转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 账号或验证码记录不存在
	// 替代 sql.ErrNoRows / mongo.ErrNoDocuments
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（邮箱 / 用户名 / 手机号已存在）
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrConflict 并发冲突
	ErrConflict = errors.New("conflict: concurrent modification detected")
)
