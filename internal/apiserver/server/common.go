// Package server 路由配置与核心基础设施
//
// 文件组织：
//   - common.go: Handler 定义和通用工具函数
//   - handler.go: 路由配置（Router）
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"accounts-admin/internal/apiserver/auth"
	"accounts-admin/internal/config"
	"accounts-admin/internal/shared/cache"
	"accounts-admin/internal/shared/mail"
	"accounts-admin/internal/shared/model"
	"accounts-admin/internal/shared/objstore"
	"accounts-admin/internal/shared/storage"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到各领域独立包（auth、admin）
//   - 管理存储层连接
//   - 导出 Prometheus 指标
type Handler struct {
	store storage.Store   // 业务数据存储（postgres / sqlite / mongodb）
	cfg   *config.Config  // 应用配置
	authC auth.Config     // 认证配置（从 cfg 解析）

	limiter cache.ResendLimiter // 验证码重发限流（Redis，可选）
	mailer  mail.Sender         // 邮件投递
	avatars *objstore.Client    // 头像存储（MinIO，可选）

	metrics *Metrics // Prometheus 指标
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.Store, cfg *config.Config, mailer mail.Sender) *Handler {
	return &Handler{
		store:   store,
		cfg:     cfg,
		authC:   authConfigFrom(cfg),
		mailer:  mailer,
		metrics: NewMetrics("accounts"),
	}
}

// SetLimiter 设置验证码重发限流器
func (h *Handler) SetLimiter(limiter cache.ResendLimiter) {
	h.limiter = limiter
}

// SetAvatarStore 启用头像存储
func (h *Handler) SetAvatarStore(c *objstore.Client) {
	h.avatars = c
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// AuthConfig 返回解析后的认证配置
func (h *Handler) AuthConfig() auth.Config {
	return h.authC
}

// authConfigFrom 从应用配置解析认证配置，非法时长回退默认值
func authConfigFrom(cfg *config.Config) auth.Config {
	authCfg := auth.DefaultConfig()
	authCfg.JWTSecret = cfg.Auth.JWTSecret
	if d, err := time.ParseDuration(cfg.Auth.SessionTTL); err == nil && d > 0 {
		authCfg.SessionTTL = d
	}
	if d, err := time.ParseDuration(cfg.Auth.SignupTTL); err == nil && d > 0 {
		authCfg.SignupTTL = d
	}
	return authCfg
}

// StartAccountGaugeUpdater 周期性刷新账号数量指标
func (h *Handler) StartAccountGaugeUpdater(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.refreshAccountGauges(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshAccountGauges(ctx)
		}
	}
}

func (h *Handler) refreshAccountGauges(ctx context.Context) {
	roles := []model.UserRole{model.UserRoleUser, model.UserRoleAdmin, model.UserRoleSuperAdmin}
	statuses := []model.UserStatus{model.UserStatusPending, model.UserStatusActive, model.UserStatusBlocked}
	for _, role := range roles {
		for _, status := range statuses {
			_, total, err := h.store.ListUsers(ctx, model.UserFilter{Role: role, Status: status, Limit: 1})
			if err != nil {
				log.Printf("[server] account gauge refresh error: %v", err)
				return
			}
			h.metrics.SetAccountsCount(string(role), string(status), total)
		}
	}
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
