package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// configDir 由外部通过 SetConfigDir 指定，优先级最高
var configDir string

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// SetConfigDir 设置配置文件目录（用于 --config 命令行参数）
// 调用后 Load 将优先从该目录加载配置文件
func SetConfigDir(dir string) {
	configDir = dir
}

// configPathsForEnv 根据环境返回配置文件搜索路径
func configPathsForEnv(env Environment) []string {
	if configDir != "" {
		return []string{configDir}
	}
	if env == EnvProduction {
		return []string{"/etc/accounts-admin"}
	}
	// dev/test: 项目根目录的 configs/
	return []string{"configs", "../configs", "../../configs", "../../../configs"}
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/common.yaml + configs/{env}.yaml
// 3. 环境变量覆盖，构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息
	yamlCfg.Database.Password = getEnv("DB_PASSWORD", getEnv("MONGO_ROOT_PASSWORD", ""))
	yamlCfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	yamlCfg.MinIO.AccessKey = getEnv("MINIO_ROOT_USER", "")
	yamlCfg.MinIO.SecretKey = getEnv("MINIO_ROOT_PASSWORD", "")
	yamlCfg.SMTP.Username = getEnv("SMTP_USERNAME", "")
	yamlCfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	yamlCfg.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	yamlCfg.Auth.SuperAdminEmail = getEnv("SUPER_ADMIN_EMAIL", "")
	yamlCfg.Auth.SuperAdminPassword = getEnv("SUPER_ADMIN_PASSWORD", "")

	databaseURL := getEnv("DATABASE_URL", "")
	driver := detectDatabaseDriver(yamlCfg.Database.Driver, databaseURL)
	if databaseURL == "" {
		yamlCfg.Database.Driver = driver
		databaseURL = buildDatabaseURL(yamlCfg.Database, yamlCfg.Database.Password)
	}

	redisURL := ""
	if yamlCfg.Redis.Enabled || yamlCfg.Redis.URL != "" || getEnv("REDIS_URL", "") != "" {
		redisURL = getEnv("REDIS_URL", buildRedisURL(yamlCfg.Redis))
	}

	// 构建最终配置
	cfg := &Config{
		Env:            env,
		DatabaseDriver: driver,
		DatabaseURL:    databaseURL,
		DatabaseDBName: yamlCfg.Database.Name,
		RedisURL:       redisURL,
		APIPort:        getEnv("API_PORT", yamlCfg.Server.Port),
		BaseURL:        getEnv("BASE_URL", yamlCfg.Server.BaseURL),
		Auth:           yamlCfg.Auth,
		SMTP:           yamlCfg.SMTP,
		MinIO:          yamlCfg.MinIO,
		Access:         yamlCfg.Access,
	}

	if cfg.DatabaseDBName == "" {
		cfg.DatabaseDBName = "accounts_admin"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.APIPort)
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	// 1. 初始化默认值
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "accounts", Name: "accounts_admin", SSLMode: "disable"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		SMTP:     SMTPConfig{Host: "localhost", Port: 587},
		Auth:     AuthConfig{SessionTTL: "24h", SignupTTL: "1h"},
	}

	paths := configPathsForEnv(env)

	// 2. 加载 common.yaml（公共配置）
	for _, base := range paths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	// 3. 加载 {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range paths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	redis := c.RedisURL
	if redis == "" {
		redis = "disabled"
	}
	return fmt.Sprintf("Config{Env: %s, Driver: %s, DB: %s, Redis: %s, Port: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), maskPassword(redis), c.APIPort)
}
