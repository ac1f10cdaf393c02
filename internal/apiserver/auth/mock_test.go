package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/storage"
)

// mockStore 内存版 Store，供 handler 测试使用
type mockStore struct {
	mu         sync.Mutex
	users      map[string]*model.User
	challenges map[string]*model.OTPChallenge
	createErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[string]*model.User),
		challenges: make(map[string]*model.OTPChallenge),
	}
}

func (m *mockStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
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
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

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
	for key := range m.challenges {
		if strings.HasPrefix(key, id+":") {
			delete(m.challenges, key)
		}
	}
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
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) UpsertChallenge(ctx context.Context, challenge *model.OTPChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *challenge
	m.challenges[challenge.UserID+":"+string(challenge.Purpose)] = &cp
	return nil
}

func (m *mockStore) GetChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.challenges[userID+":"+string(purpose)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) DeleteChallenge(ctx context.Context, userID string, purpose model.OTPPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, userID+":"+string(purpose))
	return nil
}

func (m *mockStore) Close() error { return nil }

// mockMailer 记录发出的邮件
type mockMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	links []string
	fail  error
}

type sentMail struct {
	To      string
	Code    string
	Purpose string
}

func (m *mockMailer) SendOTP(to, code, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{To: to, Code: code, Purpose: purpose})
	return nil
}

func (m *mockMailer) SendResetLink(to, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.links = append(m.links, resetURL)
	return nil
}

func (m *mockMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Code
}

// mockLimiter 可编程的限流器
type mockLimiter struct {
	allow bool
	err   error
	calls int
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.calls++
	return m.allow, m.err
}

func (m *mockLimiter) Close() error { return nil }
