package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Rebind(t *testing.T) {
	d := NewDialect()
	assert.Equal(t, "SELECT * FROM users WHERE id = $1 AND role = $2",
		d.Rebind("SELECT * FROM users WHERE id = $1 AND role = $2"))
}

func TestDialect_UpsertConflict(t *testing.T) {
	d := NewDialect()
	got := d.UpsertConflict("user_id, purpose", []string{
		"code_hash = EXCLUDED.code_hash",
		"expires_at = EXCLUDED.expires_at",
	})
	assert.Equal(t, "ON CONFLICT (user_id, purpose) DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at", got)
}

func TestDialect_BooleanLiteral(t *testing.T) {
	d := NewDialect()
	assert.Equal(t, "TRUE", d.BooleanLiteral(true))
	assert.Equal(t, "FALSE", d.BooleanLiteral(false))
}

// 建表语句必须覆盖仓储层用到的全部表和列，全新部署直接可用
func TestSchema_CoversRepositoryColumns(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS otp_challenges")

	for _, col := range []string{
		"email", "username", "phone", "password_hash", "role", "status",
		"is_verified", "avatar_key", "last_login_at",
		"code_hash", "token_hash", "expires_at",
	} {
		assert.True(t, strings.Contains(schema, col), "schema missing column %s", col)
	}
}
