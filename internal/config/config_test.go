package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "emergency@pillscare.com", cfg.SMTP.FallbackEmail)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.TimeZone)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/pillscare?sslmode=disable")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DEFAULT_EMERGENCY_EMAIL", "desk@clinic.org")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Type)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "desk@clinic.org", cfg.SMTP.FallbackEmail)
	assert.Equal(t, 0.5, cfg.RateLimit.PerSecond)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"bad store":        {"JWT_SECRET": "s", "STORE_TYPE": "sqlite"},
		"postgres no dsn":  {"JWT_SECRET": "s", "STORE_TYPE": "postgres"},
		"mongo no uri":     {"JWT_SECRET": "s", "STORE_TYPE": "mongo"},
		"bad port":         {"JWT_SECRET": "s", "PORT": "eighty"},
		"bad timeout":      {"JWT_SECRET": "s", "REQUEST_TIMEOUT": "soon"},
		"bad rate limit":   {"JWT_SECRET": "s", "RATE_LIMIT_RPS": "-1"},
		"unknown timezone": {"JWT_SECRET": "s", "TZ_NAME": "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
