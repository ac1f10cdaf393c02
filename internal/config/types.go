// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（common.yaml + {env}.yaml，如 dev.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件中（YAML 中不存储任何密码）。
//	.env 文件同时被 Docker Compose（--env-file）、Go 应用（godotenv）、
//	systemd（EnvironmentFile=）共用，确保单一数据源。
//
// 环境：
//   - 开发: APP_ENV=dev → configs/dev.yaml + .env
//   - 测试: APP_ENV=test → configs/test.yaml + .env
//   - 生产: APP_ENV=prod → /etc/accounts-admin/prod.yaml + prod.env
package config

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test" // 测试环境（集成测试 + E2E 共用）
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig        `yaml:"server"`   // HTTP 服务（端口 + 对外 URL）
	Database DatabaseConfig      `yaml:"database"` // 数据库
	Redis    RedisConfig         `yaml:"redis"`    // Redis（验证码重发限流，可选）
	MinIO    MinIOConfig         `yaml:"minio"`    // MinIO 对象存储（头像，可选）
	SMTP     SMTPConfig          `yaml:"smtp"`     // 邮件投递
	Auth     AuthConfig          `yaml:"auth"`     // 认证
	Access   map[string][]string `yaml:"access"`   // 路由前缀 → 允许角色（覆盖内置访问表）
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port    string `yaml:"port"`     // 监听端口
	BaseURL string `yaml:"base_url"` // 对外完整 URL（密码重置链接用）
}

// AuthConfig 认证配置
// 注意：JWTSecret/SuperAdmin* 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret          string `yaml:"-"`           // 只从 JWT_SECRET 环境变量读取
	SessionTTL         string `yaml:"session_ttl"` // 例如 "24h"
	SignupTTL          string `yaml:"signup_ttl"`  // 未验证会话，例如 "1h"
	SuperAdminEmail    string `yaml:"-"`           // 只从 SUPER_ADMIN_EMAIL 环境变量读取
	SuperAdminPassword string `yaml:"-"`           // 只从 SUPER_ADMIN_PASSWORD 环境变量读取
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres", "sqlite", or "mongodb"（默认 postgres）
	Path     string `yaml:"path"`   // SQLite 文件路径
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从环境变量读取（DB_PASSWORD / MONGO_ROOT_PASSWORD）
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	URI      string `yaml:"uri"` // MongoDB 连接 URI（优先于 host/port，如 mongodb://localhost:27017）
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL（优先于 host/port/db）
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000，留空则禁用头像存储
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`  // 是否使用 HTTPS
	Bucket    string `yaml:"bucket"`   // 默认 bucket 名称
}

// SMTPConfig 邮件投递配置
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"-"` // 只从 SMTP_USERNAME 环境变量读取
	Password string `yaml:"-"` // 只从 SMTP_PASSWORD 环境变量读取
	From     string `yaml:"from"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseDriver string // "postgres", "sqlite", or "mongodb"
	DatabaseURL    string
	DatabaseDBName string // MongoDB 数据库名称
	RedisURL       string // 为空表示未启用 Redis
	APIPort        string
	BaseURL        string
	Auth           AuthConfig
	SMTP           SMTPConfig
	MinIO          MinIOConfig
	Access         map[string][]string
}
