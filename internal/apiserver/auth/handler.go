package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/objstore"
	"accounts-admin/internal/shared/storage"
)

// maxAvatarSize 头像上传大小上限
const maxAvatarSize = 5 << 20 // 5 MiB

// Handler 认证 HTTP 处理器
type Handler struct {
	store   storage.UserStore
	otp     *OTPService
	cfg     Config
	baseURL string
	secure  bool             // 生产环境 Cookie 加 Secure 标记
	avatars *objstore.Client // 可选，nil 表示头像存储未启用
}

// NewHandler 创建认证处理器
func NewHandler(store storage.UserStore, otp *OTPService, cfg Config, baseURL string) *Handler {
	return &Handler{store: store, otp: otp, cfg: cfg, baseURL: strings.TrimRight(baseURL, "/")}
}

// SetAvatarStore 启用头像存储
func (h *Handler) SetAvatarStore(c *objstore.Client) { h.avatars = c }

// SetSecureCookies 会话 Cookie 加 Secure 标记（HTTPS 环境）
func (h *Handler) SetSecureCookies(on bool) { h.secure = on }

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.HandleFunc("POST /api/v1/auth/verify-otp", h.VerifyOTP)
	mux.HandleFunc("GET /api/v1/auth/resend-otp", h.ResendOTP)
	mux.HandleFunc("POST /api/v1/auth/resend-otp", h.ResendOTP)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/reset-password", h.ResetPassword)
	mux.HandleFunc("GET /api/v1/auth/check-auth", h.CheckAuth)
	mux.HandleFunc("GET /api/v1/auth/me", h.Me)
	mux.HandleFunc("PUT /api/v1/auth/password", h.ChangePassword)
	mux.HandleFunc("POST /api/v1/auth/profile/avatar", h.UploadAvatar)
	mux.HandleFunc("GET /api/v1/auth/profile/avatar", h.GetAvatar)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Type  string `json:"type,omitempty"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token,omitempty"` // 重置链接令牌
	Email       string `json:"email,omitempty"` // 或 email + otp
	OTP         string `json:"otp,omitempty"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type authResponse struct {
	User     *model.PublicUser `json:"user"`
	Verified bool              `json:"verified"`
	Redirect string            `json:"redirect,omitempty"`
}

// ============================================================================
// 注册 / 登录 / 登出
// ============================================================================

// Signup 用户注册
// 创建 pending 状态账号，发送邮箱验证码，签发短期会话
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username, password are required")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.signup] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         model.UserRoleUser,
		Status:       model.UserStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "an account with this email or username already exists")
			return
		}
		log.Printf("[auth.signup] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	// 发送验证码；投递失败不回滚账号，用户可以走重发流程
	if err := h.otp.IssueFor(r.Context(), user, model.OTPPurposeEmailVerification); err != nil {
		log.Printf("[auth.signup] IssueFor error: %v", err)
	}

	token, err := GenerateToken(h.cfg, user)
	if err != nil {
		log.Printf("[auth.signup] GenerateToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.setSessionCookie(w, token, h.cfg.SignupTTL)

	log.Printf("[auth] User signed up: %s (%s)", user.Email, user.ID)
	writeJSON(w, http.StatusCreated, authResponse{
		User:     user.Sanitize(),
		Verified: false,
		Redirect: "/verify-otp",
	})
}

// Login 用户登录
// 凭据错误统一返回 401，不泄露邮箱是否注册
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.login] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) {
		loginsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if user.Status == model.UserStatusBlocked {
		loginsTotal.WithLabelValues("blocked").Inc()
		writeError(w, http.StatusForbidden, "account is blocked")
		return
	}

	// 未验证用户：签发短期会话并重新发送验证码，引导走验证流程
	if !user.IsVerified {
		loginsTotal.WithLabelValues("unverified").Inc()
		if err := h.otp.IssueFor(r.Context(), user, model.OTPPurposeEmailVerification); err != nil && !errors.Is(err, ErrRateLimited) {
			log.Printf("[auth.login] IssueFor error: %v", err)
		}
		token, err := GenerateToken(h.cfg, user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		h.setSessionCookie(w, token, h.cfg.SignupTTL)
		writeJSON(w, http.StatusOK, authResponse{
			User:     user.Sanitize(),
			Verified: false,
			Redirect: "/verify-otp",
		})
		return
	}

	token, err := GenerateToken(h.cfg, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.setSessionCookie(w, token, h.cfg.SessionTTL)

	if err := h.store.UpdateUserLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		log.Printf("[auth.login] UpdateUserLastLogin error: %v", err)
	}

	loginsTotal.WithLabelValues("success").Inc()
	log.Printf("[auth] User logged in: %s", user.Email)
	writeJSON(w, http.StatusOK, authResponse{
		User:     user.Sanitize(),
		Verified: true,
		Redirect: dashboardPath(string(user.Role)),
	})
}

// Logout 退出登录
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ============================================================================
// 验证码
// ============================================================================

// VerifyOTP 校验邮箱验证码
// 成功后账号转为 active 并签发完整会话
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "email and otp are required")
		return
	}
	// 密码重置验证码走 reset-password，不在这里校验
	if req.Type != "" && req.Type != string(model.OTPPurposeEmailVerification) {
		writeError(w, http.StatusBadRequest, "unsupported verification type")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.verify] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		// 与验证码错误同响应，不泄露邮箱是否注册
		writeError(w, http.StatusUnauthorized, "invalid verification code")
		return
	}

	if err := h.otp.Validate(r.Context(), user.ID, model.OTPPurposeEmailVerification, req.OTP); err != nil {
		switch {
		case errors.Is(err, ErrOTPExpired):
			writeError(w, http.StatusGone, "verification code has expired")
		case errors.Is(err, ErrOTPInvalid):
			writeError(w, http.StatusUnauthorized, "invalid verification code")
		default:
			log.Printf("[auth.verify] Validate error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if err := h.store.UpdateUserVerified(r.Context(), user.ID, true); err != nil {
		log.Printf("[auth.verify] UpdateUserVerified error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user.Status == model.UserStatusPending {
		if err := h.store.UpdateUserStatus(r.Context(), user.ID, model.UserStatusActive); err != nil {
			log.Printf("[auth.verify] UpdateUserStatus error: %v", err)
		}
	}
	user.IsVerified = true
	user.Status = model.UserStatusActive

	token, err := GenerateToken(h.cfg, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.setSessionCookie(w, token, h.cfg.SessionTTL)

	log.Printf("[auth] Email verified: %s", user.Email)
	writeJSON(w, http.StatusOK, authResponse{
		User:     user.Sanitize(),
		Verified: true,
		Redirect: dashboardPath(string(user.Role)),
	})
}

// ResendOTP 重发验证码
// GET /api/v1/auth/resend-otp?email=...&type=email-verification
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("email")))
	purpose := model.OTPPurpose(r.URL.Query().Get("type"))
	if r.Method == http.MethodPost {
		var req verifyOTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			if req.Email != "" {
				email = strings.TrimSpace(strings.ToLower(req.Email))
			}
			if req.Type != "" {
				purpose = model.OTPPurpose(req.Type)
			}
		}
	}
	if purpose == "" {
		purpose = model.OTPPurposeEmailVerification
	}

	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !model.ValidOTPPurpose(purpose) {
		writeError(w, http.StatusBadRequest, "invalid verification type")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Printf("[auth.resend] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.otp.IssueFor(r.Context(), user, purpose); err != nil {
		switch {
		case errors.Is(err, ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "please wait before requesting another code")
		case errors.Is(err, ErrDelivery):
			writeError(w, http.StatusInternalServerError, "failed to send verification email")
		default:
			log.Printf("[auth.resend] IssueFor error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// ============================================================================
// 密码重置
// ============================================================================

// ForgotPassword 发起密码重置
// 无论邮箱是否注册都返回同一响应，不泄露账号存在性
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	genericResponse := map[string]string{
		"message": "If this email exists, a password reset link has been sent.",
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.forgot] GetUserByEmail error: %v", err)
		writeJSON(w, http.StatusOK, genericResponse)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, genericResponse)
		return
	}

	token, err := GenerateResetToken(h.cfg, user, model.OTPTTL)
	if err != nil {
		log.Printf("[auth.forgot] GenerateResetToken error: %v", err)
		writeJSON(w, http.StatusOK, genericResponse)
		return
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.baseURL, token)

	// 令牌哈希与验证码落在同一条挑战记录上，重置成功即整条消费。
	// 签发失败（含限流）也返回同一响应，不泄露账号存在性。
	if err := h.otp.IssueResetFor(r.Context(), user, token, resetURL); err != nil {
		log.Printf("[auth.forgot] IssueResetFor error: %v", err)
	}

	writeJSON(w, http.StatusOK, genericResponse)
}

// ResetPassword 完成密码重置
// 支持两种凭证：重置链接令牌，或 email + 验证码
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "newPassword is required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	var user *model.User
	switch {
	case req.Token != "":
		claims, err := ParseToken(h.cfg, req.Token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeError(w, http.StatusGone, "reset link has expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid reset link")
			return
		}
		if claims.Purpose != string(model.OTPPurposePasswordReset) {
			writeError(w, http.StatusUnauthorized, "invalid reset link")
			return
		}
		user, err = h.store.GetUserByID(r.Context(), claims.Subject)
		if err != nil || user == nil {
			writeError(w, http.StatusUnauthorized, "invalid reset link")
			return
		}
		// 令牌必须命中在库的重置挑战，成功即消费，重放无效
		if err := h.otp.ValidateResetToken(r.Context(), user.ID, req.Token); err != nil {
			switch {
			case errors.Is(err, ErrOTPExpired):
				writeError(w, http.StatusGone, "reset link has expired")
			case errors.Is(err, ErrOTPInvalid):
				writeError(w, http.StatusUnauthorized, "invalid reset link")
			default:
				log.Printf("[auth.reset] ValidateResetToken error: %v", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

	case req.Email != "" && req.OTP != "":
		email := strings.TrimSpace(strings.ToLower(req.Email))
		var err error
		user, err = h.store.GetUserByEmail(r.Context(), email)
		if err != nil {
			log.Printf("[auth.reset] GetUserByEmail error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "invalid verification code")
			return
		}
		if err := h.otp.Validate(r.Context(), user.ID, model.OTPPurposePasswordReset, req.OTP); err != nil {
			switch {
			case errors.Is(err, ErrOTPExpired):
				writeError(w, http.StatusGone, "verification code has expired")
			case errors.Is(err, ErrOTPInvalid):
				writeError(w, http.StatusUnauthorized, "invalid verification code")
			default:
				log.Printf("[auth.reset] Validate error: %v", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

	default:
		writeError(w, http.StatusBadRequest, "token or email+otp is required")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		log.Printf("[auth.reset] UpdateUserPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	// 旧会话作废由客户端负责：这里清掉当前 Cookie
	clearSessionCookie(w)
	log.Printf("[auth] Password reset: %s", user.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password has been reset"})
}

// ============================================================================
// 会话 / 资料
// ============================================================================

// CheckAuth 校验当前会话并返回用户信息
func (h *Handler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	claims, err := ParseToken(h.cfg, cookie.Value)
	if err != nil || claims.Purpose != "" {
		clearSessionCookie(w)
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.Subject)
	if err != nil || user == nil {
		clearSessionCookie(w)
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if user.Status == model.UserStatusBlocked {
		clearSessionCookie(w)
		writeError(w, http.StatusForbidden, "account is blocked")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:     user.Sanitize(),
		Verified: user.IsVerified,
	})
}

// Me 获取当前用户信息（守卫路由，AuthUser 由中间件注入）
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.Sanitize())
}

// ChangePassword 修改密码（需要旧密码）
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !CheckPassword(req.OldPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "incorrect old password")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// UploadAvatar 上传头像（multipart 字段 avatar）
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not enabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "avatar must be an image")
		return
	}

	key := objstore.AvatarKey(authUser.ID)
	if err := h.avatars.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		log.Printf("[auth.avatar] Upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}
	if err := h.store.UpdateUserAvatar(r.Context(), authUser.ID, key); err != nil {
		log.Printf("[auth.avatar] UpdateUserAvatar error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatarKey": key})
}

// GetAvatar 下载当前用户头像
func (h *Handler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "avatar storage is not enabled")
		return
	}

	obj, contentType, err := h.avatars.Download(r.Context(), objstore.AvatarKey(authUser.ID))
	if err != nil {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}
	defer obj.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	io.Copy(w, obj)
}

// ============================================================================
// 超级管理员引导
// ============================================================================

// EnsureSuperAdmin 确保超级管理员存在（启动时调用）
// 如果配置了邮箱且数据库中不存在该用户，则自动创建
func EnsureSuperAdmin(store storage.UserStore, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email = strings.TrimSpace(strings.ToLower(email))

	ctx := context.Background()
	existing, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check super admin: %w", err)
	}
	if existing != nil {
		if existing.Role != model.UserRoleSuperAdmin {
			log.Printf("[auth] Upgrading user %s to super-admin role", email)
			existing.Role = model.UserRoleSuperAdmin
			existing.Status = model.UserStatusActive
			existing.IsVerified = true
			if err := store.UpdateUser(ctx, existing); err != nil {
				return fmt.Errorf("upgrade super admin: %w", err)
			}
		}
		log.Printf("[auth] Super admin already exists: %s (%s)", email, existing.ID)
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash super admin password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        email,
		Username:     "Super Admin",
		PasswordHash: hash,
		Role:         model.UserRoleSuperAdmin,
		Status:       model.UserStatusActive,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	log.Printf("[auth] Created super admin: %s (%s)", email, user.ID)
	return nil
}

// ============================================================================
// 工具函数
// ============================================================================

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
