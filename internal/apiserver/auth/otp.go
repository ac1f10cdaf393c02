package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"accounts-admin/internal/shared/cache"
	"accounts-admin/internal/shared/mail"
	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/storage"
)

var (
	// ErrOTPInvalid 验证码错误或不存在
	ErrOTPInvalid = errors.New("verification code is invalid")
	// ErrOTPExpired 验证码已过期
	ErrOTPExpired = errors.New("verification code has expired")
	// ErrRateLimited 重发过于频繁
	ErrRateLimited = errors.New("too many requests, please wait before retrying")
	// ErrDelivery 邮件投递失败
	ErrDelivery = errors.New("failed to deliver verification email")
)

// OTPService 验证码服务
//
// 验证码以 SHA-256 哈希落库，明文只出现在邮件里。
// 每个 (用户, 用途) 只保留一条挑战，重发覆盖旧码。
type OTPService struct {
	store   storage.OTPStore
	limiter cache.ResendLimiter
	mailer  mail.Sender
	now     func() time.Time
}

// NewOTPService 创建验证码服务
func NewOTPService(store storage.OTPStore, limiter cache.ResendLimiter, mailer mail.Sender) *OTPService {
	if limiter == nil {
		limiter = cache.NewNoOpLimiter()
	}
	return &OTPService{store: store, limiter: limiter, mailer: mailer, now: time.Now}
}

// GenerateOTP 生成 6 位数字验证码
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashOTP 验证码哈希（SHA-256 hex）
func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// IssueFor 为用户签发验证码并发送邮件
//
// 邮件投递失败时回滚挑战记录，调用方可放心重试。
// 受限流器保护：同一 (用户, 用途) 在冷却期内重复请求返回 ErrRateLimited。
func (s *OTPService) IssueFor(ctx context.Context, user *model.User, purpose model.OTPPurpose) error {
	key := user.ID + ":" + string(purpose)
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// 限流器故障不阻塞核心流程
		log.Printf("[auth.otp] limiter error, allowing request: %v", err)
	} else if !ok {
		return ErrRateLimited
	}

	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	now := s.now()
	challenge := &model.OTPChallenge{
		UserID:    user.ID,
		Purpose:   purpose,
		CodeHash:  hashOTP(code),
		ExpiresAt: now.Add(model.OTPTTL),
		CreatedAt: now,
	}
	if err := s.store.UpsertChallenge(ctx, challenge); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	if err := s.mailer.SendOTP(user.Email, code, string(purpose)); err != nil {
		s.rollback(ctx, user.ID, purpose)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	otpIssuedTotal.WithLabelValues(string(purpose)).Inc()
	log.Printf("[auth.otp] Sent %s code to %s", purpose, user.Email)
	return nil
}

// IssueResetFor 签发密码重置挑战：验证码 + 重置链接令牌
//
// 两种凭证落在同一条挑战记录上（验证码哈希 + 令牌哈希），
// 任意一方使用成功即整条消费，重新签发整条覆盖。
// 任一封邮件投递失败都回滚挑战。
func (s *OTPService) IssueResetFor(ctx context.Context, user *model.User, token, resetURL string) error {
	key := user.ID + ":" + string(model.OTPPurposePasswordReset)
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// 限流器故障不阻塞核心流程
		log.Printf("[auth.otp] limiter error, allowing request: %v", err)
	} else if !ok {
		return ErrRateLimited
	}

	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	now := s.now()
	challenge := &model.OTPChallenge{
		UserID:    user.ID,
		Purpose:   model.OTPPurposePasswordReset,
		CodeHash:  hashOTP(code),
		TokenHash: hashOTP(token),
		ExpiresAt: now.Add(model.OTPTTL),
		CreatedAt: now,
	}
	if err := s.store.UpsertChallenge(ctx, challenge); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	if err := s.mailer.SendResetLink(user.Email, resetURL); err != nil {
		s.rollback(ctx, user.ID, model.OTPPurposePasswordReset)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if err := s.mailer.SendOTP(user.Email, code, string(model.OTPPurposePasswordReset)); err != nil {
		s.rollback(ctx, user.ID, model.OTPPurposePasswordReset)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	otpIssuedTotal.WithLabelValues(string(model.OTPPurposePasswordReset)).Inc()
	log.Printf("[auth.otp] Sent password-reset credentials to %s", user.Email)
	return nil
}

// rollback 投递失败后清除挑战，避免留下一个用户永远收不到的凭证
func (s *OTPService) rollback(ctx context.Context, userID string, purpose model.OTPPurpose) {
	if err := s.store.DeleteChallenge(ctx, userID, purpose); err != nil {
		log.Printf("[auth.otp] rollback challenge failed: %v", err)
	}
}

// ValidateResetToken 校验密码重置链接令牌
//
// 令牌必须命中当前在库的重置挑战，成功即整条消费：
// 同一令牌不能使用两次，且连带作废同一挑战的验证码。
func (s *OTPService) ValidateResetToken(ctx context.Context, userID, token string) error {
	challenge, err := s.store.GetChallenge(ctx, userID, model.OTPPurposePasswordReset)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if challenge == nil || challenge.TokenHash == "" {
		return ErrOTPInvalid
	}
	if challenge.Expired(s.now()) {
		return ErrOTPExpired
	}

	got := []byte(hashOTP(token))
	want := []byte(challenge.TokenHash)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrOTPInvalid
	}

	if err := s.store.DeleteChallenge(ctx, userID, model.OTPPurposePasswordReset); err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	return nil
}

// Validate 校验验证码
//
// 成功即消费：同一验证码不能使用两次。
// 挑战不存在与验证码错误返回同一个错误，不泄露是否签发过验证码。
func (s *OTPService) Validate(ctx context.Context, userID string, purpose model.OTPPurpose, code string) error {
	challenge, err := s.store.GetChallenge(ctx, userID, purpose)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if challenge == nil {
		otpValidatedTotal.WithLabelValues(string(purpose), "invalid").Inc()
		return ErrOTPInvalid
	}
	if challenge.Expired(s.now()) {
		otpValidatedTotal.WithLabelValues(string(purpose), "expired").Inc()
		return ErrOTPExpired
	}

	got := []byte(hashOTP(code))
	want := []byte(challenge.CodeHash)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		otpValidatedTotal.WithLabelValues(string(purpose), "invalid").Inc()
		return ErrOTPInvalid
	}

	if err := s.store.DeleteChallenge(ctx, userID, purpose); err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	otpValidatedTotal.WithLabelValues(string(purpose), "success").Inc()
	return nil
}
