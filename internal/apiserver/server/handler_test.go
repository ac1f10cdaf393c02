package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accounts-admin/internal/config"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/admin/users/usr-1a2b3c", "/api/v1/admin/users/{id}"},
		{"/api/v1/admin/users/usr-1a2b3c/status", "/api/v1/admin/users/{id}/status"},
		{"/api/v1/super-admin/admins/usr-9f8e7d", "/api/v1/super-admin/admins/{id}"},
		{"/api/v1/super-admin/admins/usr-9f8e7d/status", "/api/v1/super-admin/admins/{id}/status"},
		{"/api/v1/admin/users", "/api/v1/admin/users"},
		{"/api/v1/auth/login", "/api/v1/auth/login"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := corsMiddleware(next)

	// 预检请求直接返回 200
	r := httptest.NewRequest("OPTIONS", "/api/v1/auth/login", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want origin echoed", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}

	// 普通请求透传
	r = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}

func TestAuthConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:  "secret",
			SessionTTL: "12h",
			SignupTTL:  "30m",
		},
	}
	got := authConfigFrom(cfg)
	if got.JWTSecret != "secret" {
		t.Errorf("JWTSecret = %q", got.JWTSecret)
	}
	if got.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", got.SessionTTL)
	}
	if got.SignupTTL != 30*time.Minute {
		t.Errorf("SignupTTL = %v, want 30m", got.SignupTTL)
	}

	// 非法时长回退默认值
	cfg.Auth.SessionTTL = "not-a-duration"
	cfg.Auth.SignupTTL = ""
	got = authConfigFrom(cfg)
	if got.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want default 24h", got.SessionTTL)
	}
	if got.SignupTTL != time.Hour {
		t.Errorf("SignupTTL = %v, want default 1h", got.SignupTTL)
	}
}
