package server

import (
	"net/http"

	"accounts-admin/internal/apiserver/admin"
	"accounts-admin/internal/apiserver/auth"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//   - GET /metrics - Prometheus 指标
//
// 认证 (Auth):
//   - POST /api/v1/auth/signup          - 注册
//   - POST /api/v1/auth/login           - 登录
//   - POST /api/v1/auth/logout          - 登出
//   - POST /api/v1/auth/verify-otp      - 校验邮箱验证码
//   - GET  /api/v1/auth/resend-otp      - 重发验证码
//   - POST /api/v1/auth/forgot-password - 发起密码重置
//   - POST /api/v1/auth/reset-password  - 完成密码重置
//   - GET  /api/v1/auth/check-auth      - 会话校验
//   - GET  /api/v1/auth/me              - 当前用户信息
//   - PUT  /api/v1/auth/password        - 修改密码
//   - POST/GET /api/v1/auth/profile/avatar - 头像上传/下载
//
// 账号管理 (Admin):
//   - GET/POST        /api/v1/admin/users              - 用户列表/创建
//   - GET/PUT/DELETE  /api/v1/admin/users/{id}         - 用户详情/更新/删除
//   - PATCH           /api/v1/admin/users/{id}/status  - 封禁/解封
//   - 同构路由位于 /api/v1/super-admin/admins（仅 super-admin）
//
// 中间件栈（外→内）：CORS → 路由守卫 → 指标 → 业务路由
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Auth 路由
	otpSvc := auth.NewOTPService(h.store, h.limiter, h.mailer)
	authHandler := auth.NewHandler(h.store, otpSvc, h.authC, h.cfg.BaseURL)
	authHandler.SetSecureCookies(h.cfg.IsProduction())
	if h.avatars != nil {
		authHandler.SetAvatarStore(h.avatars)
	}
	authHandler.RegisterRoutes(mux)

	// 账号管理路由
	adminHandler := admin.NewHandler(h.store)
	adminHandler.RegisterRoutes(mux)

	// 应用指标中间件
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用路由守卫（访问表可由配置覆盖）
	guard := auth.NewGuard(h.authC, h.cfg.Access)
	guardedHandler := guard.Middleware(apiHandler)

	// 应用 CORS 中间件
	return corsMiddleware(guardedHandler)
}

// corsMiddleware 添加 CORS 头支持跨域请求
// 会话走 Cookie，必须回显 Origin 并允许携带凭据，不能用通配符
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
