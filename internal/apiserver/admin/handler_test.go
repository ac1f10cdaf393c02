package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"accounts-admin/internal/apiserver/auth"
	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/storage"
)

// mockStore 内存版 UserStore
type mockStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockStore() *mockStore {
	return &mockStore{users: make(map[string]*model.User)}
}

func (m *mockStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	filter.Normalize()

	var matched []*model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(u.Email), s) && !strings.Contains(strings.ToLower(u.Username), s) {
				continue
			}
		}
		cp := *u
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *mockStore) UpdateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, u := range m.users {
		if id != user.ID && (u.Email == user.Email || u.Username == user.Username) {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockStore) UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error {
	return m.update(id, func(u *model.User) { u.Status = status })
}

func (m *mockStore) UpdateUserVerified(ctx context.Context, id string, verified bool) error {
	return m.update(id, func(u *model.User) { u.IsVerified = verified })
}

func (m *mockStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return m.update(id, func(u *model.User) { u.PasswordHash = passwordHash })
}

func (m *mockStore) UpdateUserAvatar(ctx context.Context, id, avatarKey string) error {
	return m.update(id, func(u *model.User) { u.AvatarKey = &avatarKey })
}

func (m *mockStore) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.update(id, func(u *model.User) { u.LastLoginAt = &at })
}

func (m *mockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockStore) update(id string, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(u)
	return nil
}

// ============================================================================
// 测试辅助
// ============================================================================

func seedUser(t *testing.T, store *mockStore, id string, role model.UserRole, status model.UserStatus) *model.User {
	t.Helper()
	user := &model.User{
		ID:         id,
		Email:      id + "@example.com",
		Username:   id,
		Role:       role,
		Status:     status,
		IsVerified: true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

func doRequest(h http.HandlerFunc, method, target, pathID string, body interface{}, actor *auth.AuthUser) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	if pathID != "" {
		r.SetPathValue("id", pathID)
	}
	if actor != nil {
		r = r.WithContext(auth.WithAuthUser(r.Context(), actor))
	}
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

// ============================================================================
// 用户管理
// ============================================================================

func TestCreate(t *testing.T) {
	h := NewHandler(newMockStore()).scoped(model.UserRoleUser)

	w := doRequest(h.Create, "POST", "/api/v1/admin/users", "", createRequest{
		Email: "alice@example.com", Username: "alice", Password: "password123",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp model.PublicUser
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Role != model.UserRoleUser {
		t.Errorf("Role = %q, want user", resp.Role)
	}
	if resp.Status != model.UserStatusActive {
		t.Errorf("Status = %q, want active", resp.Status)
	}
	if !resp.IsVerified {
		t.Error("admin-created account must be verified")
	}
}

func TestCreate_AdminScope(t *testing.T) {
	h := NewHandler(newMockStore()).scoped(model.UserRoleAdmin)

	w := doRequest(h.Create, "POST", "/api/v1/super-admin/admins", "", createRequest{
		Email: "bob@example.com", Username: "bob", Password: "password123",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.PublicUser
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Role != model.UserRoleAdmin {
		t.Errorf("Role = %q, want admin", resp.Role)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "alice", model.UserRoleUser, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	w := doRequest(h.Create, "POST", "/api/v1/admin/users", "", createRequest{
		Email: "alice@example.com", Username: "other", Password: "password123",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCreate_Validation(t *testing.T) {
	h := NewHandler(newMockStore()).scoped(model.UserRoleUser)
	tests := []struct {
		name string
		req  createRequest
	}{
		{"missing fields", createRequest{Email: "a@b.co"}},
		{"bad email", createRequest{Email: "nope", Username: "x", Password: "password123"}},
		{"short password", createRequest{Email: "a@b.co", Username: "x", Password: "short"}},
		{"bad status", createRequest{Email: "a@b.co", Username: "x", Password: "password123", Status: "frozen"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h.Create, "POST", "/api/v1/admin/users", "", tt.req, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestList_ScopedAndPaginated(t *testing.T) {
	store := newMockStore()
	for i := 0; i < 15; i++ {
		seedUser(t, store, fmt.Sprintf("user-%02d", i), model.UserRoleUser, model.UserStatusActive)
	}
	seedUser(t, store, "admin-1", model.UserRoleAdmin, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	w := doRequest(h.List, "GET", "/api/v1/admin/users?page=2&limit=10", "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp listResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	// 管理员不在用户列表里
	if resp.Total != 15 {
		t.Errorf("Total = %d, want 15", resp.Total)
	}
	if len(resp.Users) != 5 {
		t.Errorf("len(Users) = %d, want 5", len(resp.Users))
	}
	if resp.Page != 2 || resp.Limit != 10 {
		t.Errorf("Page/Limit = %d/%d, want 2/10", resp.Page, resp.Limit)
	}
	for _, u := range resp.Users {
		if u.Role != model.UserRoleUser {
			t.Errorf("leaked role %q in user list", u.Role)
		}
	}
}

func TestList_Filters(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "alice", model.UserRoleUser, model.UserStatusActive)
	seedUser(t, store, "bob", model.UserRoleUser, model.UserStatusBlocked)
	h := NewHandler(store).scoped(model.UserRoleUser)

	w := doRequest(h.List, "GET", "/api/v1/admin/users?status=blocked", "", nil, nil)
	var resp listResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Users[0].Username != "bob" {
		t.Errorf("status filter: total = %d", resp.Total)
	}

	w = doRequest(h.List, "GET", "/api/v1/admin/users?search=ali", "", nil, nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Users[0].Username != "alice" {
		t.Errorf("search filter: total = %d", resp.Total)
	}

	w = doRequest(h.List, "GET", "/api/v1/admin/users?status=frozen", "", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: status = %d, want 400", w.Code)
	}
}

func TestGet_CrossRoleIsNotFound(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "admin-1", model.UserRoleAdmin, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	// 用户管理入口查管理员账号 → 404
	w := doRequest(h.Get, "GET", "/api/v1/admin/users/admin-1", "admin-1", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUpdate(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "alice", model.UserRoleUser, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	newName := "alice-renamed"
	w := doRequest(h.Update, "PUT", "/api/v1/admin/users/alice", "alice", updateRequest{Username: &newName}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got, _ := store.GetUserByID(context.Background(), "alice")
	if got.Username != "alice-renamed" {
		t.Errorf("Username = %q, want alice-renamed", got.Username)
	}
}

func TestUpdate_DuplicateEmail(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "alice", model.UserRoleUser, model.UserStatusActive)
	seedUser(t, store, "bob", model.UserRoleUser, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	taken := "bob@example.com"
	w := doRequest(h.Update, "PUT", "/api/v1/admin/users/alice", "alice", updateRequest{Email: &taken}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestUpdateStatus(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "alice", model.UserRoleUser, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	w := doRequest(h.UpdateStatus, "PATCH", "/api/v1/admin/users/alice/status", "alice",
		statusRequest{Status: "blocked"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got, _ := store.GetUserByID(context.Background(), "alice")
	if got.Status != model.UserStatusBlocked {
		t.Errorf("Status = %q, want blocked", got.Status)
	}

	// 非法状态
	w = doRequest(h.UpdateStatus, "PATCH", "/api/v1/admin/users/alice/status", "alice",
		statusRequest{Status: "frozen"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status: status = %d, want 400", w.Code)
	}
}

func TestUpdateStatus_Self(t *testing.T) {
	store := newMockStore()
	admin := seedUser(t, store, "admin-1", model.UserRoleAdmin, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleAdmin)

	actor := &auth.AuthUser{ID: admin.ID, Role: model.UserRoleAdmin}
	w := doRequest(h.UpdateStatus, "PATCH", "/api/v1/super-admin/admins/admin-1/status", "admin-1",
		statusRequest{Status: "blocked"}, actor)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d (cannot block yourself)", w.Code, http.StatusBadRequest)
	}
}

func TestDelete(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, "alice", model.UserRoleUser, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleUser)

	w := doRequest(h.Delete, "DELETE", "/api/v1/admin/users/alice", "alice", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	got, _ := store.GetUserByID(context.Background(), "alice")
	if got != nil {
		t.Error("user still present after delete")
	}

	// 再删一次 → 404
	w = doRequest(h.Delete, "DELETE", "/api/v1/admin/users/alice", "alice", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDelete_Self(t *testing.T) {
	store := newMockStore()
	admin := seedUser(t, store, "admin-1", model.UserRoleAdmin, model.UserStatusActive)
	h := NewHandler(store).scoped(model.UserRoleAdmin)

	actor := &auth.AuthUser{ID: admin.ID, Role: model.UserRoleAdmin}
	w := doRequest(h.Delete, "DELETE", "/api/v1/super-admin/admins/admin-1", "admin-1", nil, actor)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d (cannot delete yourself)", w.Code, http.StatusBadRequest)
	}
}
