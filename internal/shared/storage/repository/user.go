package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/storage"
	"accounts-admin/internal/shared/storage/dbutil"
)

const userColumns = `id, email, username, phone, password_hash, role, status,
	 is_verified, avatar_key, last_login_at, created_at, updated_at`

// scanUser 从单行结果扫描 User
func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Phone, &u.PasswordHash,
		&u.Role, &u.Status, &u.IsVerified, &u.AvatarKey, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser 创建账号
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO users (id, email, username, phone, password_hash, role, status,
		 is_verified, avatar_key, last_login_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`),
		user.ID, user.Email, user.Username, user.Phone, user.PasswordHash,
		user.Role, user.Status, user.IsVerified, user.AvatarKey, user.LastLoginAt,
		user.CreatedAt, user.UpdatedAt,
	)
	return wrapError(err)
}

// GetUserByID 通过 ID 查找账号
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = $1`), id)
	return scanUser(row)
}

// GetUserByEmail 通过邮箱查找账号（邮箱由调用方归一化）
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = $1`), email)
	return scanUser(row)
}

// ListUsers 按条件分页列出账号，返回当前页数据和总条数
func (s *Store) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, int, error) {
	filter.Normalize()

	var conditions []string
	var args []interface{}
	n := 1

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = %s", dbutil.Placeholder(n)))
		args = append(args, filter.Role)
		n++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = %s", dbutil.Placeholder(n)))
		args = append(args, filter.Status)
		n++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(username LIKE %s OR email LIKE %s)", dbutil.Placeholder(n), dbutil.Placeholder(n+1)))
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
		n += 2
	}

	countQuery, countArgs := dbutil.BuildDynamicQuery(s.dialect,
		`SELECT COUNT(*) FROM users`, conditions, args)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery, listArgs := dbutil.BuildDynamicQuery(s.dialect,
		`SELECT `+userColumns+` FROM users`, conditions, args)
	listQuery += s.rebind(fmt.Sprintf(" ORDER BY created_at DESC LIMIT %s OFFSET %s",
		dbutil.Placeholder(n), dbutil.Placeholder(n+1)))
	listArgs = append(listArgs, filter.Limit, filter.Offset())

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.Phone, &u.PasswordHash,
			&u.Role, &u.Status, &u.IsVerified, &u.AvatarKey, &u.LastLoginAt,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateUser 更新账号可编辑字段（字段级后写者胜）
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET email = $1, username = $2, phone = $3, role = $4,
		 updated_at = `+s.now()+` WHERE id = $5`),
		user.Email, user.Username, user.Phone, user.Role, user.ID,
	)
	if err != nil {
		return wrapError(err)
	}
	return checkAffected(res)
}

// UpdateUserStatus 更新账号状态
func (s *Store) UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET status = $1, updated_at = `+s.now()+` WHERE id = $2`),
		status, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateUserVerified 更新邮箱验证标记
func (s *Store) UpdateUserVerified(ctx context.Context, id string, verified bool) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET is_verified = $1, updated_at = `+s.now()+` WHERE id = $2`),
		verified, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateUserPassword 更新密码哈希
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET password_hash = $1, updated_at = `+s.now()+` WHERE id = $2`),
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateUserAvatar 更新头像对象 key
func (s *Store) UpdateUserAvatar(ctx context.Context, id, avatarKey string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET avatar_key = $1, updated_at = `+s.now()+` WHERE id = $2`),
		avatarKey, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateUserLastLogin 记录最近登录时间
func (s *Store) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET last_login_at = $1 WHERE id = $2`), at, id)
	return err
}

// DeleteUser 删除账号（验证码记录随外键级联删除）
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = $1`), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// checkAffected 零行受影响视为记录不存在
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
