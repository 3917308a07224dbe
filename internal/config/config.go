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
	Auth         AuthConfig
	Detection    DetectionConfig
	SLA          SLAConfig
	DRCache      DRCacheConfig
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

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	// OperatorKeyHash is the bcrypt hash of the shared operator key exchanged
	// for bearer tokens. Empty disables the token endpoint.
	OperatorKeyHash string
}

// DetectionConfig carries fault pattern thresholds per scope type.
type DetectionConfig struct {
	PoleThreshold  int
	PONThreshold   int
	ZoneThreshold  int
	DRThreshold    int
	TimeWindowDays int
}

// SLAConfig defines fallback resolution budgets applied when no sla_configs
// row matches a (ticket_type, priority) pair. Zero disables the fallback.
type SLAConfig struct {
	LowHours    int
	NormalHours int
	HighHours   int
	UrgentHours int
}

// DRCacheConfig bounds the DR metadata lookup cache.
type DRCacheConfig struct {
	TTLSeconds int
	MaxEntries int
	UseRedis   bool
}

// NotificationConfig holds the escalation webhook endpoint.
type NotificationConfig struct {
	WebhookURL string
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
			Name:                  getEnv("APP_NAME", "fault-ticket-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
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
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorKeyHash:       os.Getenv("AUTH_OPERATOR_KEY_HASH"),
		},
		Detection: DetectionConfig{
			PoleThreshold:  getEnvAsInt("DETECTION_POLE_THRESHOLD", 3),
			PONThreshold:   getEnvAsInt("DETECTION_PON_THRESHOLD", 5),
			ZoneThreshold:  getEnvAsInt("DETECTION_ZONE_THRESHOLD", 10),
			DRThreshold:    getEnvAsInt("DETECTION_DR_THRESHOLD", 2),
			TimeWindowDays: getEnvAsInt("DETECTION_TIME_WINDOW_DAYS", 30),
		},
		SLA: SLAConfig{
			LowHours:    getEnvAsInt("SLA_LOW_HOURS", 0),
			NormalHours: getEnvAsInt("SLA_NORMAL_HOURS", 0),
			HighHours:   getEnvAsInt("SLA_HIGH_HOURS", 0),
			UrgentHours: getEnvAsInt("SLA_URGENT_HOURS", 0),
		},
		DRCache: DRCacheConfig{
			TTLSeconds: getEnvAsInt("DR_CACHE_TTL_SECONDS", 3600),
			MaxEntries: getEnvAsInt("DR_CACHE_MAX_ENTRIES", 5000),
			UseRedis:   getEnvAsBool("DR_CACHE_USE_REDIS", false),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
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

// TTL returns the DR cache entry lifetime.
func (d DRCacheConfig) TTL() time.Duration {
	if d.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(d.TTLSeconds) * time.Second
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
