package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cocinarte/internal/cache"
	"cocinarte/internal/database"
	"cocinarte/internal/external"
	"cocinarte/internal/messaging"

	"github.com/joho/godotenv"
)

// Config is built once at startup and passed to every component
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
	AllowedOrigins []string

	// Booking currency, ISO code in lower case
	Currency string

	Database      database.Config
	NATS          messaging.Config
	Payment       external.PaymentConfig
	Redis         cache.Config
	Elasticsearch ElasticsearchConfig
	Auth          AuthConfig
	Jobs          JobsConfig
}

type AuthConfig struct {
	// JWTSecret verifies access tokens issued by the auth provider
	JWTSecret   string
	JWTAudience string
	// AdminEmails are granted admin on top of the admins table
	AdminEmails   []string
	AdminCacheTTL time.Duration
}

type JobsConfig struct {
	SettlementInterval time.Duration
	// CaptureWindow must stay below the processor's 7 day authorization expiry
	CaptureWindow   time.Duration
	AbandonInterval time.Duration
	AbandonTTL      time.Duration
}

// Load reads an optional .env file and then the environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Currency:       strings.ToLower(getEnv("BOOKING_CURRENCY", "usd")),

		Database: database.Config{
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "cocinarte"),
			Password:           getEnv("DB_PASSWORD", "cocinarte"),
			DBName:             getEnv("DB_NAME", "cocinarte"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "cocinarte"),
			ClientID:  getEnv("NATS_CLIENT_ID", "cocinarte-api"),
		},

		Payment: external.PaymentConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			BaseURL:   getEnv("STRIPE_API_BASE", ""),
			Timeout:   getEnvDuration("PAYMENT_TIMEOUT", 30*time.Second),
		},

		Redis: cache.Config{
			Addr:         getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:     getEnv("VALKEY_PASSWORD", ""),
			DB:           getEnvInt("VALKEY_DB", 0),
			ClassListTTL: getEnvDuration("CLASS_LIST_CACHE_TTL", 5*time.Minute),
		},

		Elasticsearch: loadElasticsearchConfig(),

		Auth: AuthConfig{
			JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
			JWTAudience:   getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
			AdminEmails:   getEnvList("ADMIN_EMAILS", nil),
			AdminCacheTTL: getEnvDuration("ADMIN_CACHE_TTL", time.Minute),
		},

		Jobs: JobsConfig{
			SettlementInterval: getEnvDuration("SETTLEMENT_INTERVAL", 15*time.Minute),
			CaptureWindow:      getEnvDuration("CAPTURE_WINDOW", 48*time.Hour),
			AbandonInterval:    getEnvDuration("ABANDON_INTERVAL", 5*time.Minute),
			AbandonTTL:         getEnvDuration("ABANDON_TTL", time.Hour),
		},
	}
}

// getEnv returns the variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "48h")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
