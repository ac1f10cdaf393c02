package auth

import (
	"log"
	"net/http"
	"sort"
	"strings"

	"accounts-admin/internal/shared/model"
)

// defaultAccess 内置访问表：路由前缀 → 允许角色
// 空角色列表表示任意已登录用户。可通过配置覆盖。
var defaultAccess = map[string][]string{
	"/admin":                {"admin", "super-admin"},
	"/user":                 {"user"},
	"/super-admin":          {"super-admin"},
	"/dashboard":            {},
	"/api/v1/admin":         {"admin", "super-admin"},
	"/api/v1/super-admin":   {"super-admin"},
	"/api/v1/auth/profile":  {},
	"/api/v1/auth/me":       {},
	"/api/v1/auth/password": {},
}

// authPages 登录/注册页：已登录用户访问时转到各自首页
var authPages = map[string]bool{
	"/login":             true,
	"/signup":            true,
	"/super-admin/login": true,
}

// Guard 路由守卫
//
// 页面路由用 303 重定向（未登录 → 登录页，角色不符 → /404），
// API 路由返回 JSON 401/403。
type Guard struct {
	cfg      Config
	access   map[string][]string
	prefixes []string // access 的键，按长度降序（最长前缀优先）
}

// NewGuard 创建路由守卫，overrides 覆盖内置访问表中的同名前缀
func NewGuard(cfg Config, overrides map[string][]string) *Guard {
	access := make(map[string][]string, len(defaultAccess)+len(overrides))
	for prefix, roles := range defaultAccess {
		access[prefix] = roles
	}
	for prefix, roles := range overrides {
		access[prefix] = roles
	}

	prefixes := make([]string, 0, len(access))
	for prefix := range access {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	return &Guard{cfg: cfg, access: access, prefixes: prefixes}
}

// allowedRoles 按最长前缀匹配查访问表
func (g *Guard) allowedRoles(path string) ([]string, bool) {
	for _, prefix := range g.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return g.access[prefix], true
		}
	}
	return nil, false
}

// dashboardPath 各角色的首页
func dashboardPath(role string) string {
	switch role {
	case "admin":
		return "/admin"
	case "super-admin":
		return "/super-admin"
	default:
		return "/user"
	}
}

// loginPath 按路径判断应跳转的登录页
func loginPath(path string) string {
	if strings.HasPrefix(path, "/super-admin") {
		return "/super-admin/login"
	}
	return "/login"
}

func roleAllowed(roles []string, role string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// sessionFromRequest 从 Cookie 解析会话令牌
// 重置令牌（Purpose 非空）不是会话，按无效处理
func (g *Guard) sessionFromRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, http.ErrNoCookie
	}
	claims, err := ParseToken(g.cfg, cookie.Value)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Middleware 路由守卫中间件
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		isAPI := strings.HasPrefix(path, "/api/")

		// 已登录用户访问登录/注册页 → 转到各自首页
		if authPages[path] {
			if claims, err := g.sessionFromRequest(r); err == nil && claims.Verified {
				http.Redirect(w, r, dashboardPath(claims.Role), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		roles, guarded := g.allowedRoles(path)
		if !guarded {
			// 非守卫路由：尽力注入用户信息后放行
			if claims, err := g.sessionFromRequest(r); err == nil {
				r = r.WithContext(WithAuthUser(r.Context(), authUserFromClaims(claims)))
			}
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.sessionFromRequest(r)
		if err != nil {
			if err != http.ErrNoCookie {
				log.Printf("[auth.guard] token rejected: %v", err)
				clearSessionCookie(w)
			}
			if isAPI {
				writeError(w, http.StatusUnauthorized, "authentication required")
			} else {
				http.Redirect(w, r, loginPath(path), http.StatusSeeOther)
			}
			return
		}

		// 未验证用户只能走验证流程
		if !claims.Verified {
			if isAPI {
				writeError(w, http.StatusForbidden, "email not verified")
			} else {
				http.Redirect(w, r, "/verify-otp", http.StatusSeeOther)
			}
			return
		}

		if !roleAllowed(roles, claims.Role) {
			if isAPI {
				writeError(w, http.StatusForbidden, "insufficient role")
			} else {
				http.Redirect(w, r, "/404", http.StatusSeeOther)
			}
			return
		}

		ctx := WithAuthUser(r.Context(), authUserFromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole 单路由角色检查（守卫之外的补充防线）
func RequireRole(next http.HandlerFunc, roles ...model.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, role := range roles {
			if user.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, "insufficient role")
	}
}

func authUserFromClaims(claims *Claims) *AuthUser {
	return &AuthUser{
		ID:       claims.Subject,
		Email:    claims.Email,
		Role:     model.UserRole(claims.Role),
		Verified: claims.Verified,
	}
}
