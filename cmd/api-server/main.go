// Package main API Server 入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accounts-admin/internal/apiserver/auth"
	"accounts-admin/internal/apiserver/server"
	"accounts-admin/internal/config"
	cacheredis "accounts-admin/internal/shared/cache/redis"
	"accounts-admin/internal/shared/mail"
	"accounts-admin/internal/shared/objstore"
	"accounts-admin/internal/shared/storage"
	"accounts-admin/internal/shared/storage/driver/postgres"
	"accounts-admin/internal/shared/storage/driver/sqlite"
	"accounts-admin/internal/shared/storage/mongostore"
	"accounts-admin/internal/shared/storage/repository"
)

func main() {
	configDir := flag.String("config", "", "配置文件目录（默认按 APP_ENV 选择）")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	// 加载配置（自动加载 .env，根据 APP_ENV 切换 YAML）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// 初始化存储层（postgres / sqlite / mongodb）
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to %s", cfg.DatabaseDriver)

	// 邮件投递
	mailer := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	h := server.NewHandler(store, cfg, mailer)

	// Redis 限流器（可选，未配置时不限流）
	if cfg.RedisURL != "" {
		limiter, err := cacheredis.NewLimiter(cfg.RedisURL, cacheredis.DefaultCooldown)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer limiter.Close()
		h.SetLimiter(limiter)
	}

	// MinIO 头像存储（可选）
	if cfg.MinIO.Endpoint != "" {
		avatars, err := objstore.NewClient(objstore.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to create MinIO client: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := avatars.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure MinIO bucket: %v", err)
		}
		cancel()
		h.SetAvatarStore(avatars)
		log.Println("Connected to MinIO")
	}

	// 超级管理员引导
	if err := auth.EnsureSuperAdmin(store, cfg.Auth.SuperAdminEmail, cfg.Auth.SuperAdminPassword); err != nil {
		log.Fatalf("Failed to ensure super admin: %v", err)
	}

	// 账号数量指标刷新
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.StartAccountGaugeUpdater(ctx, time.Minute)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

// openStore 按配置的驱动打开存储层
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		dialect := sqlite.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewStore(db, dialect), nil
	case "mongodb":
		return mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseDBName)
	default: // postgres
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		dialect := postgres.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewStore(db, dialect), nil
	}
}
