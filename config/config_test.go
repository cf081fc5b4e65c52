package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "JWT_TTL", "ALLOW_AUTH", "REDIS_HOST", "RABBITMQ_URL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.DSN() != "quiz.db" {
		t.Errorf("DB = %s %q, want sqlite quiz.db", cfg.DB.Driver, cfg.DB.DSN())
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.AllowRegistration {
		t.Error("registration should be disabled by default")
	}
	if cfg.Redis.Enabled() || cfg.RabbitMQ.Enabled() {
		t.Error("redis and rabbitmq should be disabled without a host")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("ALLOW_AUTH", "true")
	t.Setenv("EVENT_BUFFER", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	want := "host=db port=5432 user=itpec password=secret dbname=itpec sslmode=disable"
	if got := cfg.DB.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
	if cfg.Auth.TokenTTL != 90*time.Minute {
		t.Errorf("TokenTTL = %v, want 90m", cfg.Auth.TokenTTL)
	}
	if !cfg.Auth.AllowRegistration {
		t.Error("ALLOW_AUTH=true should enable registration")
	}
	if cfg.Events.Buffer != 256 {
		t.Errorf("Buffer = %d, want default 256 on parse failure", cfg.Events.Buffer)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}
