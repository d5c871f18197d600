// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingToken is returned when no bot credential could be resolved.
var ErrMissingToken = errors.New("bot token is required")

var defaults = map[string]any{
	"bot.token":                "",
	"bot.api_url":              "https://api.telegram.org",
	"bot.poll_timeout":         10 * time.Second,
	"bot.request_timeout":      0,
	"bot.fetch_failure_policy": "retry",
	"bot.unknown_command_text": "Unknown command. Please try again.",
	"bot.send_rate":            30,
	"bot.allowed_chats":        []int64{},
	"bot.keyring.enabled":      false,
	"bot.keyring.service":      "pollbot",
	"bot.keyring.user":         "",
	"log.level":                "info",
	"log.format":               "json",
	"log.file":                 "",
	"log.max_size_mb":          100,
	"log.max_backups":          3,
	"log.max_age_days":         28,
	"sentry.enabled":           false,
	"sentry.dsn":               "",
	"sentry.environment":       "",
	"redis.enabled":            false,
	"redis.addr":               "localhost:6379",
	"redis.password":           "",
	"redis.db":                 0,
	"ratelimit.enabled":        false,
	"ratelimit.limit":          20,
	"ratelimit.window":         time.Minute,
	"dedupe.enabled":           false,
	"dedupe.ttl":               24 * time.Hour,
	"server.addr":              ":9090",
	"server.shutdown_timeout":  10 * time.Second,
}

// Load reads .env files, ./configs/<APP_ENV>.yaml and environment variables, validates the result and returns it.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// missing env files are fine
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg, v, err := LoadFile(fmt.Sprintf("./configs/%s.yaml", env))
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// LoadFile builds the configuration from an optional YAML file plus environment overrides.
func LoadFile(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	if err := ResolveToken(&cfg.Bot); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Watch re-reads the config file on change and hands the validated result to onChange.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil || v.ConfigFileUsed() == "" {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
}

// EffectiveRequestTimeout returns the HTTP client timeout, which must outlast the long poll.
func (c BotConfig) EffectiveRequestTimeout() time.Duration {
	if c.RequestTimeout > c.PollTimeout {
		return c.RequestTimeout
	}

	return c.PollTimeout + 5*time.Second
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
