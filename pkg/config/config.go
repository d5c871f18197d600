package config

import "time"

// Config holds runtime configuration for the bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot       BotConfig       `mapstructure:"bot"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Dedupe    DedupeConfig    `mapstructure:"dedupe"`
	Server    ServerConfig    `mapstructure:"server"`
}

// BotConfig configures the Bot API transport and the poll driver.
type BotConfig struct {
	Token              string        `mapstructure:"token"`
	APIURL             string        `mapstructure:"api_url" validate:"required,url"`
	PollTimeout        time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	FetchFailurePolicy string        `mapstructure:"fetch_failure_policy" validate:"oneof=retry stop report"`
	UnknownCommandText string        `mapstructure:"unknown_command_text" validate:"required"`
	SendRate           float64       `mapstructure:"send_rate" validate:"gte=0"`
	AllowedChats       []int64       `mapstructure:"allowed_chats"`
	Keyring            KeyringConfig `mapstructure:"keyring"`
}

// KeyringConfig points at an OS keyring entry holding the bot token.
type KeyringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Service string `mapstructure:"service" validate:"required_if=Enabled true"`
	User    string `mapstructure:"user" validate:"required_if=Enabled true"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string `mapstructure:"environment"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RateLimitConfig bounds how many updates a single chat may push through the pipeline per window.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit" validate:"gte=0"`
	Window  time.Duration `mapstructure:"window" validate:"gte=0"`
}

// DedupeConfig controls dropping of updates that were already processed.
type DedupeConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}
