package mongostore

import (
	"context"
	"time"

	"accounts-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

// ListUsers 按条件分页列出账号
func (s *Store) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, int, error) {
	filter.Normalize()

	query := bson.D{}
	if filter.Role != "" {
		query = append(query, bson.E{Key: "role", Value: filter.Role})
	}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}
	if filter.Search != "" {
		pattern := bson.D{{Key: "$regex", Value: filter.Search}, {Key: "$options", Value: "i"}}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "username", Value: pattern}},
			bson.D{{Key: "email", Value: pattern}},
		}})
	}

	total, err := s.col(ColUsers).CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, wrapError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))
	users, err := findMany[model.User](ctx, s.col(ColUsers), query, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, int(total), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	return updateFields(ctx, s.col(ColUsers), user.ID, bson.D{
		{Key: "email", Value: user.Email},
		{Key: "username", Value: user.Username},
		{Key: "phone", Value: user.Phone},
		{Key: "role", Value: user.Role},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateUserVerified(ctx context.Context, id string, verified bool) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "is_verified", Value: verified},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateUserAvatar(ctx context.Context, id, avatarKey string) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "avatar_key", Value: avatarKey},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "last_login_at", Value: at},
	})
}

// DeleteUser 删除账号及其所有验证码记录
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := deleteOne(ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}}); err != nil {
		return err
	}
	// MongoDB 没有外键级联，手动清理验证码
	_, err := s.col(ColOTPChallenges).DeleteMany(ctx, bson.D{{Key: "user_id", Value: id}})
	return wrapError(err)
}
