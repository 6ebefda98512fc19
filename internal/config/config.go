package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Session      SessionConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Mail         MailConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SessionConfig defines the signed session cookie contract. The secret is
// loaded once at process start and passed explicitly; nothing else reads the
// environment for it.
type SessionConfig struct {
	Secret         string
	CookieName     string
	CookieTTLHours int
	LoginPath      string
}

// AuthConfig defines credential handling parameters.
type AuthConfig struct {
	BcryptCost int
	AdminEmail string
}

// VerificationConfig controls one-time token lifetimes.
type VerificationConfig struct {
	TokenTTLHours        int
	AccessLinkTTLMinutes int
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	ResendAPIKey string
	EmailFrom    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "vibescript-builder"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               getEnv("APP_BASE_URL", "http://localhost:8080"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			Secret:         getEnv("SESSION_SECRET", "dev-local-secret-please-change"),
			CookieName:     getEnv("SESSION_COOKIE_NAME", "vs_session"),
			CookieTTLHours: getEnvAsInt("SESSION_COOKIE_TTL_HOURS", 168),
			LoginPath:      getEnv("SESSION_LOGIN_PATH", "/signin"),
		},
		Auth: AuthConfig{
			BcryptCost: getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail: getEnv("AUTH_ADMIN_EMAIL", ""),
		},
		Verification: VerificationConfig{
			TokenTTLHours:        getEnvAsInt("VERIFY_TOKEN_TTL_HOURS", 24),
			AccessLinkTTLMinutes: getEnvAsInt("ACCESS_LINK_TTL_MINUTES", 15),
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			EmailFrom:    getEnv("EMAIL_FROM", "VibeScript <noreply@vibescript.online>"),
		},
	}

	if cfg.App.Env == "production" && cfg.Session.Secret == "dev-local-secret-please-change" {
		return nil, fmt.Errorf("SESSION_SECRET must be set in production")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CookieTTL returns the session cookie lifetime.
func (s SessionConfig) CookieTTL() time.Duration {
	return time.Duration(s.CookieTTLHours) * time.Hour
}

// TokenTTL returns the verification token lifetime.
func (v VerificationConfig) TokenTTL() time.Duration {
	return time.Duration(v.TokenTTLHours) * time.Hour
}

// AccessLinkTTL returns the one-shot access link lifetime.
func (v VerificationConfig) AccessLinkTTL() time.Duration {
	return time.Duration(v.AccessLinkTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
