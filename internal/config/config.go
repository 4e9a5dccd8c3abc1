package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Discord   DiscordConfig
	Reminders ReminderConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address string
}

// DatabaseConfig selects the store: Postgres when PostgresURL is set,
// otherwise the SQLite file at Path.
type DatabaseConfig struct {
	Path        string
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval        time.Duration
	Margin          time.Duration
	Retention       time.Duration
	DeliveryTimeout time.Duration
}

type DiscordConfig struct {
	Token  string
	APIURL string
}

type ReminderConfig struct {
	PromptTimeout time.Duration
	Location      *time.Location
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

func LoadAll() (*Config, error) {
	var errs []error

	collectInt := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	seconds := func(key string, def int) time.Duration {
		return time.Duration(collectInt(key, def)) * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			Path:        getEnv("DB_PATH", "reminders.db"),
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},
		Discord: DiscordConfig{
			Token:  os.Getenv("DISCORD_TOKEN"),
			APIURL: getEnv("DISCORD_API_URL", "https://discord.com/api/v10"),
		},
		Scheduler: SchedulerConfig{
			Interval:        seconds("SCHED_INTERVAL_SECONDS", 60),
			Margin:          seconds("LOOKAHEAD_MARGIN_SECONDS", 300),
			Retention:       time.Duration(collectInt("RETENTION_HOURS", 168)) * time.Hour,
			DeliveryTimeout: seconds("DELIVERY_TIMEOUT_SECONDS", 10),
		},
		Reminders: ReminderConfig{
			PromptTimeout: seconds("PROMPT_TIMEOUT_SECONDS", 60),
		},
		Log: LogConfig{
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis = RedisConfig{
			Enabled:  true,
			Address:  addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       collectInt("REDIS_DB", 0),
			TTL:      seconds("REDIS_TTL_SECONDS", 86400),
		}
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
	}
	cfg.Reminders.Location = loc

	if err := cfg.Log.Level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	errs = append(errs, validate(cfg)...)
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("SCHED_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.Scheduler.Margin < cfg.Scheduler.Interval {
		errs = append(errs, errors.New("LOOKAHEAD_MARGIN_SECONDS must be >= SCHED_INTERVAL_SECONDS"))
	}
	if cfg.Scheduler.Retention <= 0 {
		errs = append(errs, errors.New("RETENTION_HOURS must be > 0"))
	}
	if cfg.Scheduler.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("DELIVERY_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Reminders.PromptTimeout <= 0 {
		errs = append(errs, errors.New("PROMPT_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.Log.Format))
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		errs = append(errs, errors.New("REDIS_TTL_SECONDS must be > 0"))
	}
	if cfg.Database.PostgresURL == "" && cfg.Database.Path == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	return errs
}

// RequireDiscord reports whether the notifier can be built.
func (c *Config) RequireDiscord() error {
	if c.Discord.Token == "" {
		return errors.New("missing required env var: DISCORD_TOKEN")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
