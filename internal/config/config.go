package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	AI           AIConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AIConfig configures the triage pipeline collaborators.
type AIConfig struct {
	PredictorURL            string
	PredictorTimeoutSeconds int
	AnthropicAPIKey         string
	ExplainerModel          string
	ExplainerMaxTokens      int
	ExplainerTimeoutSeconds int
	ScanIntervalSeconds     int
	ScanLockTTLSeconds      int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	dsn := os.Getenv("POSTGRES_DSN")
	driver := strings.ToLower(getEnv("STORAGE_DRIVER", ""))
	if driver == "" {
		driver = StorageDriverPostgres
		if dsn == "" {
			driver = StorageDriverMemory
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "gearguard"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Driver: driver,
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		AI: AIConfig{
			PredictorURL:            getEnv("PREDICTOR_URL", "http://127.0.0.1:8000"),
			PredictorTimeoutSeconds: getEnvAsInt("PREDICTOR_TIMEOUT_SECONDS", 30),
			AnthropicAPIKey:         os.Getenv("ANTHROPIC_API_KEY"),
			ExplainerModel:          getEnv("EXPLAINER_MODEL", "claude-3-5-haiku-latest"),
			ExplainerMaxTokens:      getEnvAsInt("EXPLAINER_MAX_TOKENS", 300),
			ExplainerTimeoutSeconds: getEnvAsInt("EXPLAINER_TIMEOUT_SECONDS", 20),
			ScanIntervalSeconds:     getEnvAsInt("AI_SCAN_INTERVAL_SECONDS", 0),
			ScanLockTTLSeconds:      getEnvAsInt("AI_SCAN_LOCK_TTL_SECONDS", 600),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@gearguard.local"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORAGE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must not be empty"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be within [4, 31], got %d", c.Auth.BcryptCost))
	}
	if c.AI.ScanIntervalSeconds < 0 {
		errs = append(errs, errors.New("AI_SCAN_INTERVAL_SECONDS must not be negative"))
	}
	if c.AI.PredictorTimeoutSeconds <= 0 || c.AI.ExplainerTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("AI timeouts must be positive"))
	}
	return errors.Join(errs...)
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

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// PredictorTimeout bounds the predictor fetch.
func (a AIConfig) PredictorTimeout() time.Duration {
	return time.Duration(a.PredictorTimeoutSeconds) * time.Second
}

// ExplainerTimeout bounds one explanation call.
func (a AIConfig) ExplainerTimeout() time.Duration {
	return time.Duration(a.ExplainerTimeoutSeconds) * time.Second
}

// ScanInterval returns the periodic scan interval; zero disables it.
func (a AIConfig) ScanInterval() time.Duration {
	return time.Duration(a.ScanIntervalSeconds) * time.Second
}

// ScanLockTTL bounds how long a crashed scan can hold the lock.
func (a AIConfig) ScanLockTTL() time.Duration {
	if a.ScanLockTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(a.ScanLockTTLSeconds) * time.Second
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
