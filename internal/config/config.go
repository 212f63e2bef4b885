package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Directory DirectoryConfig `koanf:"directory"`
	Session   SessionConfig   `koanf:"session"`
	Roles     RolesConfig     `koanf:"roles"`
	Access    AccessConfig    `koanf:"access"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
}

type AppConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// URL may be empty; the service then runs on in-memory stores.
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type DirectoryConfig struct {
	BaseURL  string `koanf:"base_url"`
	BotToken string `koanf:"bot_token"`
}

type SessionConfig struct {
	Secret       string        `koanf:"secret" validate:"required"`
	TTL          time.Duration `koanf:"ttl" validate:"gt=0"`
	RefreshAfter time.Duration `koanf:"refresh_after" validate:"gt=0"`
}

type RolesConfig struct {
	// Hierarchy is the raw JSON role configuration.
	Hierarchy string `koanf:"hierarchy"`
}

type AccessConfig struct {
	SuperAdminUserID string `koanf:"super_admin_user_id"`
}

type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" validate:"gt=0"`
	Burst int     `koanf:"burst" validate:"min=1"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Load builds the configuration from defaults, an optional YAML file
// and environment variables, in ascending precedence.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "guildstock-api",
		"app.version":     "dev",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"session.ttl":           "24h",
		"session.refresh_after": "1h",

		"rate_limit.rps":   10,
		"rate_limit.burst": 20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

var envKeyMap = map[string]string{
	"ENVIRONMENT":           "app.environment",
	"HOST":                  "server.host",
	"PORT":                  "server.port",
	"DATABASE_URL":          "database.url",
	"DISCORD_API_BASE_URL":  "directory.base_url",
	"DISCORD_BOT_TOKEN":     "directory.bot_token",
	"SESSION_SECRET":        "session.secret",
	"SESSION_TTL":           "session.ttl",
	"SESSION_REFRESH_AFTER": "session.refresh_after",
	"DISCORD_ROLES_CONFIG":  "roles.hierarchy",
	"SUPER_ADMIN_USER_ID":   "access.super_admin_user_id",
	"RATE_LIMIT_RPS":        "rate_limit.rps",
	"RATE_LIMIT_BURST":      "rate_limit.burst",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Session.RefreshAfter >= c.Session.TTL {
		return fmt.Errorf("session.refresh_after must be below session.ttl")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
