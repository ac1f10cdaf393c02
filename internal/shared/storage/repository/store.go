// Package repository 数据库无关的账号存储层
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"accounts-admin/internal/shared/storage"
	"accounts-admin/internal/shared/storage/dbutil"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store 通用存储实现
// 实现了 storage.Store 接口
type Store struct {
	db      *sql.DB
	dialect dbutil.Dialect
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建通用存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// now 返回当前时间戳 SQL 表达式
func (s *Store) now() string {
	return s.dialect.CurrentTimestamp()
}

// wrapError 将数据库引擎错误转换为领域错误
//
// PostgreSQL 唯一键冲突为 SQLSTATE 23505，
// SQLite (modernc) 返回的错误信息包含 "UNIQUE constraint failed"。
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return storage.ErrDuplicate
	}
	return err
}
