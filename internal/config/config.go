package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	// App
	Env   string `env:"ENV" envDefault:"dev"` // dev / staging / prod
	Store string `env:"STORE" envDefault:"postgres"`

	// HTTP
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"1m"`

	// Auth / Security
	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"storefront-auth"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"12"`
	HashWorkers      int           `env:"HASH_WORKERS" envDefault:"0"` // 0 = GOMAXPROCS
	MinPasswordScore int           `env:"MIN_PASSWORD_SCORE" envDefault:"3"`

	// Email verification
	VerifyEmailBaseURL  string        `env:"VERIFY_EMAIL_BASE_URL,required,notEmpty"`
	VerifyEmailTokenTTL time.Duration `env:"VERIFY_EMAIL_TOKEN_TTL" envDefault:"24h"`

	// Infrastructure
	DBAddr         string `env:"DB_ADDR"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBMigrate      bool   `env:"DB_MIGRATE" envDefault:"true"`
	RedisAddr      string `env:"REDIS_ADDR"` // empty = in-process rate limiting
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RabbitURL      string `env:"RABBIT_URL"` // empty = log-only notifier
	RabbitExchange string `env:"RABBIT_EXCHANGE" envDefault:"storefront.events"`

	// Rate limiting on the credential endpoints, per client IP
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
	TrustProxy     bool          `env:"TRUST_PROXY" envDefault:"false"` // key on X-Forwarded-For

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	// Must include `token=` because the notifier appends the token.
	if !strings.Contains(c.VerifyEmailBaseURL, "token=") {
		errs = append(errs, errors.New("VERIFY_EMAIL_BASE_URL must contain `token=`"))
	}

	switch c.Store {
	case StorePostgres:
		if c.DBAddr == "" {
			errs = append(errs, errors.New("missing required env var: DB_ADDR"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}

	for name, d := range map[string]time.Duration{
		"ACCESS_TOKEN_TTL":       c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL":      c.RefreshTokenTTL,
		"VERIFY_EMAIL_TOKEN_TTL": c.VerifyEmailTokenTTL,
		"AUTH_RATE_WINDOW":       c.AuthRateWindow,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}
	if c.HashWorkers < 0 {
		errs = append(errs, fmt.Errorf("HASH_WORKERS must not be negative, got %d", c.HashWorkers))
	}
	if c.MinPasswordScore < 1 || c.MinPasswordScore > 4 {
		errs = append(errs, fmt.Errorf("MIN_PASSWORD_SCORE must be within [1, 4], got %d", c.MinPasswordScore))
	}
	if c.AuthRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT must be positive, got %d", c.AuthRateLimit))
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}
