package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                       string        `mapstructure:"PORT"`
	DatabasePath               string        `mapstructure:"DATABASE_PATH"`
	JWTSecret                  string        `mapstructure:"JWT_SECRET"`
	LogLevel                   string        `mapstructure:"LOG_LEVEL"`
	LogFormat                  string        `mapstructure:"LOG_FORMAT"`
	StagingBackend             string        `mapstructure:"STAGING_BACKEND"`
	StagingTTL                 time.Duration `mapstructure:"STAGING_TTL"`
	RedisAddr                  string        `mapstructure:"REDIS_ADDR"`
	RedisPassword              string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                    int           `mapstructure:"REDIS_DB"`
	DiscordBotToken            string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordModerationChannelID string        `mapstructure:"DISCORD_MODERATION_CHANNEL_ID"`
	// Origins allowed to call the API with credentials, separated by ",".
	CORSAllowedOrigins []string `mapstructure:"-"`
	// Overrides the mottoes an export must contain, separated by "|".
	RequiredMottoes []string `mapstructure:"-"`
}

const (
	StagingMemory = "memory"
	StagingRedis  = "redis"
)

// LoadConfig reads the environment, after loading a .env file when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "reputation.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STAGING_BACKEND", StagingMemory)
	v.SetDefault("STAGING_TTL", "5m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ALLOWED_ORIGINS")
	v.BindEnv("REDIS_PASSWORD")
	v.BindEnv("DISCORD_BOT_TOKEN")
	v.BindEnv("DISCORD_MODERATION_CHANNEL_ID")
	v.BindEnv("REQUIRED_MOTTOES")

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"), ",")
	config.RequiredMottoes = splitList(v.GetString("REQUIRED_MOTTOES"), "|")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.StagingBackend {
	case StagingMemory, StagingRedis:
	default:
		return fmt.Errorf("unknown STAGING_BACKEND %q", c.StagingBackend)
	}
	if c.StagingTTL <= 0 {
		return fmt.Errorf("STAGING_TTL must be positive")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS must list origins explicitly, not %q", origin)
		}
	}
	return nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, m := range strings.Split(s, sep) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
