// Package auth 用户认证：JWT 会话令牌、密码哈希、验证码、路由守卫
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"accounts-admin/internal/shared/model"
)

// contextKey context 键类型
type contextKey string

const ctxKeyAuthUser contextKey = "auth_user"

// CookieName 会话令牌 Cookie 名称
const CookieName = "token"

var (
	// ErrSecretMissing 未配置 JWT 密钥
	ErrSecretMissing = errors.New("jwt secret is not configured")
	// ErrTokenInvalid 令牌无效（签名错误、格式错误、算法不符）
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired 令牌已过期
	ErrTokenExpired = errors.New("token has expired")
)

// AuthUser 从 JWT 解析出的用户信息
type AuthUser struct {
	ID       string
	Email    string
	Role     model.UserRole
	Verified bool
}

// Config 认证配置
type Config struct {
	JWTSecret  string
	SessionTTL time.Duration // 已验证用户会话有效期
	SignupTTL  time.Duration // 未验证用户的临时会话有效期（注册后等待验证码）
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{
		SessionTTL: 24 * time.Hour,
		SignupTTL:  time.Hour,
	}
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// JWT 会话令牌
// ============================================================================

// Claims JWT 声明
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Verified bool   `json:"verified,omitempty"`
	Purpose  string `json:"purpose,omitempty"` // 空 = 会话令牌；"password-reset" = 重置链接令牌
}

// GenerateToken 生成会话令牌
// 未验证用户拿到短期令牌（仅够完成邮箱验证流程），已验证用户拿到完整会话
func GenerateToken(cfg Config, user *model.User) (string, error) {
	ttl := cfg.SessionTTL
	if !user.IsVerified {
		ttl = cfg.SignupTTL
	}
	return signToken(cfg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email:    user.Email,
		Role:     string(user.Role),
		Verified: user.IsVerified,
	})
}

// GenerateResetToken 生成密码重置令牌（邮件链接用，有效期同验证码）
func GenerateResetToken(cfg Config, user *model.User, ttl time.Duration) (string, error) {
	// 每次签发携带唯一 jti：同一秒内重复签发也是不同令牌，
	// 在库挑战只绑定最新一枚的哈希
	return signToken(cfg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        generateID("rst"),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email:   user.Email,
		Purpose: string(model.OTPPurposePasswordReset),
	})
}

func signToken(cfg Config, claims Claims) (string, error) {
	if cfg.JWTSecret == "" {
		return "", ErrSecretMissing
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 解析并验证 JWT
func ParseToken(cfg Config, tokenString string) (*Claims, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrSecretMissing
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithAuthUser 将认证用户信息注入 context
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, ctxKeyAuthUser, user)
}

// GetAuthUser 从 context 获取认证用户
func GetAuthUser(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(ctxKeyAuthUser).(*AuthUser)
	return user
}
