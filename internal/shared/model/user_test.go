// Package model 核心数据模型测试
package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_PasswordHashNeverMarshalled(t *testing.T) {
	u := User{
		ID:           "usr-001",
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$2a$12$secret",
		Role:         UserRoleUser,
		Status:       UserStatusPending,
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "password")
}

func TestUser_Sanitize(t *testing.T) {
	now := time.Now()
	phone := "0123456789"
	u := User{
		ID:           "usr-001",
		Email:        "a@x.com",
		Username:     "alice",
		Phone:        &phone,
		PasswordHash: "$2a$12$secret",
		Role:         UserRoleAdmin,
		Status:       UserStatusActive,
		IsVerified:   true,
		CreatedAt:    now,
	}

	p := u.Sanitize()
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, u.Email, p.Email)
	assert.Equal(t, u.Role, p.Role)
	assert.True(t, p.IsVerified)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "secret"))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(UserRoleUser))
	assert.True(t, ValidRole(UserRoleAdmin))
	assert.True(t, ValidRole(UserRoleSuperAdmin))
	assert.False(t, ValidRole("manager"))
	assert.False(t, ValidRole(""))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(UserStatusPending))
	assert.True(t, ValidStatus(UserStatusActive))
	assert.True(t, ValidStatus(UserStatusBlocked))
	assert.False(t, ValidStatus("deleted"))
}

func TestUserFilter_Normalize(t *testing.T) {
	f := UserFilter{}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f = UserFilter{Page: 3, Limit: 20}
	f.Normalize()
	assert.Equal(t, 40, f.Offset())

	// 超出上限回退默认值
	f = UserFilter{Page: 1, Limit: 1000}
	f.Normalize()
	assert.Equal(t, 10, f.Limit)
}

func TestOTPChallenge_Expired(t *testing.T) {
	now := time.Now()
	c := OTPChallenge{
		UserID:    "usr-001",
		Purpose:   OTPPurposeEmailVerification,
		ExpiresAt: now.Add(OTPTTL),
		CreatedAt: now,
	}

	assert.False(t, c.Expired(now.Add(OTPTTL-time.Second)))
	assert.True(t, c.Expired(now.Add(OTPTTL+time.Second)))
}

func TestValidOTPPurpose(t *testing.T) {
	assert.True(t, ValidOTPPurpose(OTPPurposeEmailVerification))
	assert.True(t, ValidOTPPurpose(OTPPurposePasswordReset))
	assert.False(t, ValidOTPPurpose("login"))
}
