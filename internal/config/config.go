// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration
}

// StoreConfig selects and configures the persistence collaborator
type StoreConfig struct {
	Type        string // "memory", "postgres" or "mongo"
	PostgresURI string
	MongoURI    string
	MongoDB     string
	RedisAddr   string // optional unread counter cache
	RedisTTL    time.Duration
}

// SMTPConfig holds outbound email settings
type SMTPConfig struct {
	Host          string
	Port          int
	SenderEmail   string
	Password      string
	FallbackEmail string
}

// RateLimitConfig bounds chatbot and emergency traffic per user
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Store          *StoreConfig
	SMTP           *SMTPConfig
	RateLimit      *RateLimitConfig
	JWTSecret      string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
	CatalogPath    string
	TimeZone       *time.Location
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second,
	}
}

// DefaultStoreConfig runs everything in memory
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Type:     "memory",
		MongoDB:  "pillscare",
		RedisTTL: 10 * time.Minute,
	}
}

func DefaultSMTPConfig() *SMTPConfig {
	return &SMTPConfig{
		Host:          "smtp.gmail.com",
		Port:          587,
		FallbackEmail: "emergency@pillscare.com",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from the places the binaries are usually run from.
	// A missing file is fine.
	for _, location := range []string{".env", "../../.env"} {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	serverConfig := DefaultConfig()
	if err := intFromEnv("PORT", &serverConfig.Port); err != nil {
		return nil, err
	}
	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}
	if err := durationFromEnv("REQUEST_TIMEOUT", &serverConfig.RequestTimeout); err != nil {
		return nil, err
	}

	storeConfig, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	smtpConfig := DefaultSMTPConfig()
	smtpConfig.Host = getEnvOrDefault("SMTP_SERVER", smtpConfig.Host)
	if err := intFromEnv("SMTP_PORT", &smtpConfig.Port); err != nil {
		return nil, err
	}
	smtpConfig.SenderEmail = os.Getenv("SENDER_EMAIL")
	smtpConfig.Password = os.Getenv("SENDER_PASSWORD")
	smtpConfig.FallbackEmail = getEnvOrDefault("DEFAULT_EMERGENCY_EMAIL", smtpConfig.FallbackEmail)

	rateConfig := &RateLimitConfig{PerSecond: 1, Burst: 5}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number, got %q", v)
		}
		rateConfig.PerSecond = rps
	}
	if err := intFromEnv("RATE_LIMIT_BURST", &rateConfig.Burst); err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz := os.Getenv("TZ_NAME"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("TZ_NAME: %w", err)
		}
	}

	config := &Config{
		Server:         serverConfig,
		Store:          storeConfig,
		SMTP:           smtpConfig,
		RateLimit:      rateConfig,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
		CatalogPath:    os.Getenv("CHATBOT_CATALOG"),
		TimeZone:       loc,
		Debug:          os.Getenv("DEBUG") == "true",
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}
	if config.Debug {
		config.LogLevel = "debug"
	}

	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return config, nil
}

func loadStoreConfig() (*StoreConfig, error) {
	storeConfig := DefaultStoreConfig()
	storeConfig.Type = getEnvOrDefault("STORE_TYPE", storeConfig.Type)
	storeConfig.RedisAddr = os.Getenv("REDIS_ADDR")
	if err := durationFromEnv("REDIS_UNREAD_TTL", &storeConfig.RedisTTL); err != nil {
		return nil, err
	}

	switch storeConfig.Type {
	case "memory":
	case "postgres":
		storeConfig.PostgresURI = os.Getenv("DATABASE_URL")
		if storeConfig.PostgresURI == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required when STORE_TYPE is postgres")
		}
	case "mongo":
		storeConfig.MongoURI = os.Getenv("MONGODB_URI")
		if storeConfig.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI environment variable is required when STORE_TYPE is mongo")
		}
		storeConfig.MongoDB = getEnvOrDefault("MONGODB_DATABASE", storeConfig.MongoDB)
	default:
		return nil, fmt.Errorf("unsupported STORE_TYPE %q: expected memory, postgres or mongo", storeConfig.Type)
	}
	return storeConfig, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intFromEnv(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func durationFromEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s must be a duration like 5s, got %q", key, v)
	}
	*dst = d
	return nil
}
