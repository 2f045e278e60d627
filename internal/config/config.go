package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-jwt-secret"

type Config struct {
	AppEnv      string        `env:"APP_ENV" envDefault:"dev"`
	HTTPPort    int           `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string        `env:"DATABASE_URL" envDefault:"restoreview.db"`
	AutoMigrate bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"change-me-jwt-secret"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LeaderboardTTL          time.Duration `env:"LEADERBOARD_TTL" envDefault:"5m"`
	LeaderboardDefaultLimit int           `env:"LEADERBOARD_DEFAULT_LIMIT" envDefault:"10"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be in 1..65535, got %d", cfg.HTTPPort)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be > 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.LeaderboardTTL <= 0 {
		return errors.New("LEADERBOARD_TTL must be > 0")
	}
	if cfg.LeaderboardDefaultLimit <= 0 {
		return errors.New("LEADERBOARD_DEFAULT_LIMIT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		secret := strings.TrimSpace(cfg.JWTSecret)
		if secret == "" || secret == defaultJWTSecret {
			return errors.New("in prod/release JWT_SECRET must be set and not default")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	return env == "prod" || env == "production" || env == "release"
}
