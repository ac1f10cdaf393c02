package mongostore

import (
	"context"
	"errors"

	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// OTPStore
// ============================================================================

// UpsertChallenge 写入验证码记录，同一 (user_id, purpose) 整条覆盖
func (s *Store) UpsertChallenge(ctx context.Context, c *model.OTPChallenge) error {
	filter := bson.D{
		{Key: "user_id", Value: c.UserID},
		{Key: "purpose", Value: c.Purpose},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "user_id", Value: c.UserID},
		{Key: "purpose", Value: c.Purpose},
		{Key: "code_hash", Value: c.CodeHash},
		{Key: "token_hash", Value: c.TokenHash},
		{Key: "expires_at", Value: c.ExpiresAt},
		{Key: "created_at", Value: c.CreatedAt},
	}}}
	_, err := s.col(ColOTPChallenges).UpdateOne(ctx, filter, update,
		options.UpdateOne().SetUpsert(true))
	return wrapError(err)
}

// GetChallenge 查找账号指定用途的验证码记录，不存在返回 (nil, nil)
func (s *Store) GetChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	return findOne[model.OTPChallenge](ctx, s.col(ColOTPChallenges), bson.D{
		{Key: "user_id", Value: userID},
		{Key: "purpose", Value: purpose},
	})
}

// DeleteChallenge 清除验证码记录，删除是幂等的
func (s *Store) DeleteChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) error {
	err := deleteOne(ctx, s.col(ColOTPChallenges), bson.D{
		{Key: "user_id", Value: userID},
		{Key: "purpose", Value: purpose},
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
