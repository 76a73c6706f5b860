package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	RateLimit *RateLimitConfig `mapstructure:"rate_limit"`
	Lifecycle *LifecycleConfig `mapstructure:"lifecycle"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	BaseURL            string   `mapstructure:"base_url"`
	Port               string   `mapstructure:"port"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig tunes the login and QR-validation limiters. Disabled and
// FailOpen are explicit opt-ins; both default to false so a missing section
// means limits are enforced and store failures deny the request.
type RateLimitConfig struct {
	Disabled bool `mapstructure:"disabled"`
	FailOpen bool `mapstructure:"fail_open"`

	LoginAttempts      int `mapstructure:"login_attempts"`
	LoginWindowMinutes int `mapstructure:"login_window_minutes"`

	QRCapacity        int `mapstructure:"qr_capacity"`
	QRRefillPerMinute int `mapstructure:"qr_refill_per_minute"`
}

type LifecycleConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// Load reads the YAML config at configPath. Every key can be overridden by
// an ATTENDRY_-prefixed environment variable, e.g. ATTENDRY_API_PORT.
func Load(configPath string) (*AppConfig, error) {
	viper.SetConfigFile(configPath)

	viper.SetEnvPrefix("ATTENDRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	var conf AppConfig
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("config file changed", zap.String("file", e.Name))
	})

	return &conf, nil
}
