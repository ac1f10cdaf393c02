package repository

import (
	"context"
	"database/sql"

	"accounts-admin/internal/shared/model"
)

// UpsertChallenge 写入验证码记录，同一 (user_id, purpose) 整条覆盖
func (s *Store) UpsertChallenge(ctx context.Context, c *model.OTPChallenge) error {
	conflict := s.dialect.UpsertConflict("user_id, purpose", []string{
		"code_hash = EXCLUDED.code_hash",
		"token_hash = EXCLUDED.token_hash",
		"expires_at = EXCLUDED.expires_at",
		"created_at = EXCLUDED.created_at",
	})
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO otp_challenges (user_id, purpose, code_hash, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) `+conflict),
		c.UserID, c.Purpose, c.CodeHash, c.TokenHash, c.ExpiresAt, c.CreatedAt,
	)
	return wrapError(err)
}

// GetChallenge 查找账号指定用途的验证码记录，不存在返回 (nil, nil)
func (s *Store) GetChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	c := &model.OTPChallenge{}
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT user_id, purpose, code_hash, token_hash, expires_at, created_at
		 FROM otp_challenges WHERE user_id = $1 AND purpose = $2`),
		userID, purpose,
	).Scan(&c.UserID, &c.Purpose, &c.CodeHash, &c.TokenHash, &c.ExpiresAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteChallenge 清除验证码记录（验证成功或投递失败回滚时调用）
// 记录不存在不视为错误，删除是幂等的
func (s *Store) DeleteChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM otp_challenges WHERE user_id = $1 AND purpose = $2`),
		userID, purpose,
	)
	return err
}
