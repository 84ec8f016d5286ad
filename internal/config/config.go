package config

import (
	"fmt"
	"os"
	"time"

	"formexport/pkg/config"
)

type Config struct {
	// Env 是 CONFIG_ENV 的值
	Env string `yaml:"-"`

	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	SMTP   config.SMTPConfig   `yaml:"smtp"`
	Export config.ExportConfig `yaml:"export"`
	Admin  config.AdminConfig  `yaml:"admin"`
	// Viewer 只读账号，未配置密码时不可登录
	Viewer config.AdminConfig  `yaml:"viewer"`
}

// Load 使用统一配置中心加载配置，环境变量优先级最高
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Config{Env: env}
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSMTPFromEnv(&cfg.SMTP)
	config.OverrideExportFromEnv(&cfg.Export)
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		cfg.Admin.PasswordHash = hash
	}
	if hash := os.Getenv("VIEWER_PASSWORD_HASH"); hash != "" {
		cfg.Viewer.PasswordHash = hash
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8086"
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = "exports"
	}
	if c.Export.OptionsBackend == "" {
		c.Export.OptionsBackend = BackendPostgres
	}
	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
}

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// TokenTTL 返回 JWT 有效期，未配置时为 24 小时
func (c *Config) TokenTTL() time.Duration {
	if c.JWT.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWT.TTLHours) * time.Hour
}
