// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSecret = "carelink-dev-secret-change-me"

// Config holds application configuration values loaded from .env, file or environment variables.
type Config struct {
	Port        string        `mapstructure:"PORT"`
	APIBaseURL  string        `mapstructure:"API_BASE_URL"`
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	SessionKey  string        `mapstructure:"SESSION_SECRET"`
	LLMBaseURL  string        `mapstructure:"LLM_BASE_URL"`
	LLMToken    string        `mapstructure:"LLM_TOKEN"`
	LLMModel    string        `mapstructure:"LLM_MODEL"`
	ShellDir    string        `mapstructure:"SHELL_DIR"`
	ShellAssets string        `mapstructure:"SHELL_ASSETS"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
	ToastTTL    time.Duration `mapstructure:"TOAST_TTL"`
	SessionTTL  time.Duration `mapstructure:"SESSION_TTL"`
	LogLevel    string        `mapstructure:"LOG_LEVEL"`
	LogFormat   string        `mapstructure:"LOG_FORMAT"`
	Env         string        `mapstructure:"APP_ENV"`
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AddConfigPath(".")
	v.SetConfigName("carelink")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	// 配置文件可选
	_ = v.ReadInConfig()

	v.SetDefault("PORT", "8080")
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("DATABASE_URL", "carelink.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_SECRET", defaultSecret)
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_TOKEN", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("SHELL_DIR", "./web")
	v.SetDefault("SHELL_ASSETS", "/,/index.html,/manifest.json")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("TOAST_TTL", "4s")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("APP_ENV", "development")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Assets 预缓存的固定资源列表
func (c *Config) Assets() []string {
	var out []string
	for _, a := range strings.Split(c.ShellAssets, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.SessionKey == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}

	if c.IsProduction() {
		if c.SessionKey == defaultSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionKey) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if u.Scheme != "https" {
			slog.Warn("API_BASE_URL is not https in production")
		}
	} else if len(c.SessionKey) < 32 {
		slog.Warn("SESSION_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}
	return nil
}
