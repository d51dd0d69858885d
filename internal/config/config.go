// Package config loads runtime settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting. Command-line flags in cmd/lostfound
// override the values loaded here.
type Config struct {
	DBPath string `env:"LOSTFOUND_DB" envDefault:"lostfound.sqlite3"`
	Addr   string `env:"LOSTFOUND_ADDR" envDefault:":8080"`
	Log    LogConfig

	AdminEmail string `env:"LOSTFOUND_ADMIN_EMAIL" envDefault:"admin@localhost.test"`
	AdminName  string `env:"LOSTFOUND_ADMIN_NAME" envDefault:"Administrator"`

	JWTSecret string        `env:"LOSTFOUND_JWT_SECRET"`
	TokenTTL  time.Duration `env:"LOSTFOUND_TOKEN_TTL" envDefault:"168h"`

	Redis     RedisConfig
	RateLimit RateLimitConfig

	AMQPURL   string `env:"LOSTFOUND_AMQP_URL"`
	AMQPQueue string `env:"LOSTFOUND_AMQP_QUEUE" envDefault:"lostfound.claims"`

	OTLPEndpoint string `env:"LOSTFOUND_OTLP_ENDPOINT"`
	ServiceName  string `env:"LOSTFOUND_SERVICE_NAME" envDefault:"lostfound"`
}

// LogConfig controls the process logger. Path mirrors every record into a
// file; Level is debug, info, warn or error; Format is text or json.
type LogConfig struct {
	Path   string `env:"LOSTFOUND_LOG"`
	Level  string `env:"LOSTFOUND_LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOSTFOUND_LOG_FORMAT" envDefault:"text"`
}

// RedisConfig locates the Redis server used for rate limiting. An empty
// address disables Redis.
type RedisConfig struct {
	Addr     string `env:"LOSTFOUND_REDIS_ADDR"`
	Password string `env:"LOSTFOUND_REDIS_PASSWORD"`
	DB       int    `env:"LOSTFOUND_REDIS_DB" envDefault:"0"`
}

// RateLimitConfig sizes the token bucket applied to login, registration and
// claim filing.
type RateLimitConfig struct {
	Enabled        bool          `env:"LOSTFOUND_RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"LOSTFOUND_RATE_LIMIT_CAPACITY" envDefault:"10"`
	RefillTokens   int           `env:"LOSTFOUND_RATE_LIMIT_REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"LOSTFOUND_RATE_LIMIT_REFILL_INTERVAL" envDefault:"6s"`
	TTL            time.Duration `env:"LOSTFOUND_RATE_LIMIT_TTL" envDefault:"10m"`
	Prefix         string        `env:"LOSTFOUND_RATE_LIMIT_PREFIX" envDefault:"lostfound:rl"`
}

// Normalize clamps rate limit values to usable minimums.
func (c *RateLimitConfig) Normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if floor := 5 * c.RefillInterval; c.TTL < floor {
		c.TTL = floor
	}
}

// Load reads the given .env files (missing files are skipped) into the
// process environment without overriding variables that are already set,
// then parses the environment into a Config.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit.Normalize()
	return cfg, nil
}
