// Package admin 账号管理 - HTTP 处理
//
// 两组路由共用一套实现：
//   - /api/v1/admin/users 管理普通用户（admin 与 super-admin 可用）
//   - /api/v1/super-admin/admins 管理管理员（仅 super-admin 可用）
//
// 每组路由只操作对应角色的账号，跨角色访问按不存在处理。
package admin

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"accounts-admin/internal/apiserver/auth"
	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/storage"
)

// Handler 账号管理 HTTP 处理器
type Handler struct {
	store storage.UserStore
}

// NewHandler 创建账号管理处理器
func NewHandler(store storage.UserStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册账号管理路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// 普通用户管理（admin / super-admin）
	mux.HandleFunc("GET /api/v1/admin/users", h.scoped(model.UserRoleUser).List)
	mux.HandleFunc("POST /api/v1/admin/users", h.scoped(model.UserRoleUser).Create)
	mux.HandleFunc("GET /api/v1/admin/users/{id}", h.scoped(model.UserRoleUser).Get)
	mux.HandleFunc("PUT /api/v1/admin/users/{id}", h.scoped(model.UserRoleUser).Update)
	mux.HandleFunc("PATCH /api/v1/admin/users/{id}/status", h.scoped(model.UserRoleUser).UpdateStatus)
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", h.scoped(model.UserRoleUser).Delete)

	// 管理员管理（仅 super-admin）
	mux.HandleFunc("GET /api/v1/super-admin/admins", h.scoped(model.UserRoleAdmin).List)
	mux.HandleFunc("POST /api/v1/super-admin/admins", h.scoped(model.UserRoleAdmin).Create)
	mux.HandleFunc("GET /api/v1/super-admin/admins/{id}", h.scoped(model.UserRoleAdmin).Get)
	mux.HandleFunc("PUT /api/v1/super-admin/admins/{id}", h.scoped(model.UserRoleAdmin).Update)
	mux.HandleFunc("PATCH /api/v1/super-admin/admins/{id}/status", h.scoped(model.UserRoleAdmin).UpdateStatus)
	mux.HandleFunc("DELETE /api/v1/super-admin/admins/{id}", h.scoped(model.UserRoleAdmin).Delete)
}

// scopedHandler 绑定了目标角色的处理器
type scopedHandler struct {
	*Handler
	role model.UserRole
}

func (h *Handler) scoped(role model.UserRole) *scopedHandler {
	return &scopedHandler{Handler: h, role: role}
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type createRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
	Status   string `json:"status,omitempty"`
}

type updateRequest struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type listResponse struct {
	Users []*model.PublicUser `json:"users"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 分页列出账号
// GET /api/v1/admin/users?page=1&limit=10&status=active&search=alice
func (s *scopedHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.UserFilter{
		Role:   s.role,
		Search: strings.TrimSpace(q.Get("search")),
	}
	if st := q.Get("status"); st != "" {
		status := model.UserStatus(st)
		if !model.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = status
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	filter.Normalize()

	users, total, err := s.store.ListUsers(r.Context(), filter)
	if err != nil {
		log.Printf("[Admin] List error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	public := make([]*model.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Sanitize())
	}
	writeJSON(w, http.StatusOK, listResponse{
		Users: public,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

// Create 创建账号
// 管理端创建的账号直接 active 且已验证，不走验证码流程
func (s *scopedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
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

	status := model.UserStatusActive
	if req.Status != "" {
		status = model.UserStatus(req.Status)
		if !model.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("[Admin] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         s.role,
		Status:       status,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "an account with this email or username already exists")
			return
		}
		log.Printf("[Admin] Create error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	log.Printf("[Admin] Account created: %s (%s, %s)", user.Email, user.ID, user.Role)
	writeJSON(w, http.StatusCreated, user.Sanitize())
}

// Get 查询单个账号
func (s *scopedHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user.Sanitize())
}

// Update 更新账号资料
func (s *scopedHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if !isValidEmail(email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		user.Email = email
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			writeError(w, http.StatusBadRequest, "username must not be empty")
			return
		}
		user.Username = username
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			user.Phone = nil
		} else {
			user.Phone = req.Phone
		}
	}
	user.UpdatedAt = time.Now()

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "an account with this email or username already exists")
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("[Admin] Update error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}

	writeJSON(w, http.StatusOK, user.Sanitize())
}

// UpdateStatus 修改账号状态（封禁/解封）
// PATCH /api/v1/admin/users/{id}/status
func (s *scopedHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if self := auth.GetAuthUser(r.Context()); self != nil && self.ID == user.ID {
		writeError(w, http.StatusBadRequest, "cannot change your own status")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := model.UserStatus(req.Status)
	if !model.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := s.store.UpdateUserStatus(r.Context(), user.ID, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("[Admin] UpdateStatus error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	log.Printf("[Admin] Status changed: %s -> %s", user.Email, status)
	user.Status = status
	writeJSON(w, http.StatusOK, user.Sanitize())
}

// Delete 删除账号
func (s *scopedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if self := auth.GetAuthUser(r.Context()); self != nil && self.ID == user.ID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := s.store.DeleteUser(r.Context(), user.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("[Admin] Delete error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	log.Printf("[Admin] Account deleted: %s (%s)", user.Email, user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// lookup 按路径参数取账号，角色不在当前管理范围内按不存在处理
func (s *scopedHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return nil, false
	}
	user, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		log.Printf("[Admin] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if user == nil || user.Role != s.role {
		writeError(w, http.StatusNotFound, "account not found")
		return nil, false
	}
	return user, true
}

// ============================================================================
// 工具函数
// ============================================================================

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
