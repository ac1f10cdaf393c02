// Package model 定义核心数据模型
//
// otp.go 包含一次性验证码相关的数据模型：
//   - OTPChallenge：发给账号邮箱的一次性验证码记录
//   - OTPPurpose：验证码用途枚举
package model

import "time"

// OTPPurpose 验证码用途
type OTPPurpose string

const (
	// OTPPurposeEmailVerification 注册后的邮箱验证
	OTPPurposeEmailVerification OTPPurpose = "email-verification"

	// OTPPurposePasswordReset 找回密码
	OTPPurposePasswordReset OTPPurpose = "password-reset"
)

// ValidOTPPurpose 检查验证码用途是否合法
func ValidOTPPurpose(p OTPPurpose) bool {
	switch p {
	case OTPPurposeEmailVerification, OTPPurposePasswordReset:
		return true
	}
	return false
}

// OTPTTL 验证码有效期
const OTPTTL = 10 * time.Minute

// OTPChallenge 一次性验证码记录
//
// 同一账号同一用途最多只有一条有效记录，重新下发时整条覆盖。
// 只存验证码的 SHA-256 哈希，明文只出现在发出的邮件里。
//
// 密码重置挑战同时记录重置链接令牌的哈希（TokenHash）：
// 验证码和链接共享同一条记录，任意一方使用成功即整条消费，
// 两种凭证都是一次性的。
type OTPChallenge struct {
	UserID    string     `json:"user_id" bson:"user_id" db:"user_id"`
	Purpose   OTPPurpose `json:"purpose" bson:"purpose" db:"purpose"`
	CodeHash  string     `json:"-" bson:"code_hash" db:"code_hash"`
	TokenHash string     `json:"-" bson:"token_hash,omitempty" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" bson:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at" db:"created_at"`
}

// Expired 判断验证码在 now 时刻是否已过期
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
