package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"25" validate:"min=1"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2" validate:"min=0"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// Peers allowed to set X-Forwarded-For. Empty means the socket address is the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," validate:"dive,ip|cidr"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"auth-service"`

	AccessExpirationMinutes            int `env:"ACCESS_EXPIRATION_MINUTES" envDefault:"60" validate:"min=1"`
	RefreshExpirationMinutes           int `env:"REFRESH_EXPIRATION_MINUTES" envDefault:"10080" validate:"min=1"`
	PasswordResetExpirationMinutes     int `env:"PASSWORD_RESET_EXPIRATION_MINUTES" validate:"min=0"`
	OTPExpirationMinutes               int `env:"OTP_EXPIRATION_MINUTES" validate:"min=0"`
	EmailConfirmationExpirationMinutes int `env:"EMAIL_CONFIRMATION_EXPIRATION_MINUTES" validate:"min=0"`
	OAuthStateExpirationMinutes        int `env:"OAUTH_STATE_EXPIRATION_MINUTES" envDefault:"10" validate:"min=1"`
	OAuthRefreshExpirationMinutes      int `env:"OAUTH_REFRESH_EXPIRATION_MINUTES" envDefault:"3" validate:"min=1"`

	OAuthBindOriginIP         bool     `env:"OAUTH_BIND_ORIGIN_IP" envDefault:"false"`
	OAuthEnforceOriginIP      bool     `env:"OAUTH_ENFORCE_ORIGIN_IP" envDefault:"false"`
	OAuthAllowedRedirectHosts []string `env:"OAUTH_ALLOWED_REDIRECT_HOSTS" envSeparator:"," validate:"required_unless=Env local"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" validate:"required_with=GoogleClientID"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"http://localhost:8080/api/v1/auth/login/external/google/callback" validate:"omitempty,url"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"12" validate:"min=4,max=31"`

	SuperUserRoles []domain.RoleName `env:"SUPERUSER_ROLES" envDefault:"ADMINISTRATOR" envSeparator:","`

	RequireEmailConfirmation bool   `env:"REQUIRE_EMAIL_CONFIRMATION" envDefault:"true"`
	PasswordResetURL         string `env:"PASSWORD_RESET_URL" envDefault:"http://localhost:3000/reset-password" validate:"url"`
	EmailConfirmationURL     string `env:"EMAIL_CONFIRMATION_URL" envDefault:"http://localhost:3000/confirm-email" validate:"url"`
	OTPURL                   string `env:"OTP_URL" envDefault:"http://localhost:3000/otp" validate:"url"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@localhost" validate:"required"`

	RateLimitPerSecond int `env:"RATE_LIMIT_PER_SECOND" envDefault:"5" validate:"min=1"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"10" validate:"min=1"`

	PurgeCron           string `env:"PURGE_CRON" envDefault:"@every 1h" validate:"required"`
	PurgeRetentionHours int    `env:"PURGE_RETENTION_HOURS" envDefault:"24" validate:"min=0"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessExpirationMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpirationMinutes) * time.Minute
}

// PasswordResetTTL falls back to the access-token lifetime when unset.
func (c *Config) PasswordResetTTL() time.Duration {
	return c.orAccess(c.PasswordResetExpirationMinutes)
}

func (c *Config) OTPTTL() time.Duration {
	return c.orAccess(c.OTPExpirationMinutes)
}

func (c *Config) EmailConfirmationTTL() time.Duration {
	return c.orAccess(c.EmailConfirmationExpirationMinutes)
}

func (c *Config) OAuthStateTTL() time.Duration {
	return time.Duration(c.OAuthStateExpirationMinutes) * time.Minute
}

func (c *Config) OAuthRefreshTTL() time.Duration {
	return time.Duration(c.OAuthRefreshExpirationMinutes) * time.Minute
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

func (c *Config) orAccess(minutes int) time.Duration {
	if minutes <= 0 {
		return c.AccessTTL()
	}
	return time.Duration(minutes) * time.Minute
}
