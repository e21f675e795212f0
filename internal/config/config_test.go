package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "")
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("NOTIFY_ENABLED", "")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Store != "postgres" {
		t.Errorf("Store = %q, want postgres", cfg.Store)
	}
	if cfg.Redis.Addr != "" || cfg.Redis.TTL != 5*time.Minute {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Notify.Enabled {
		t.Error("notifications should be disabled by default")
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location())
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "Memory")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_CONNS", "7")
	t.Setenv("REPORT_CACHE_TTL", "90s")
	t.Setenv("NOTIFY_ENABLED", "on")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Store != "memory" {
		t.Errorf("Store = %q, want memory", cfg.Store)
	}
	if cfg.DB.Host != "db.internal" || cfg.DB.MaxConns != 7 {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.Redis.TTL != 90*time.Second {
		t.Errorf("TTL = %v, want 90s", cfg.Redis.TTL)
	}
	if !cfg.Notify.Enabled {
		t.Error("NOTIFY_ENABLED=on should enable notifications")
	}
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": "", "STORE": "memory", "APP_TIMEZONE": "UTC"}},
		{"unknown store", map[string]string{"JWT_SECRET": "x", "STORE": "sqlite", "APP_TIMEZONE": "UTC"}},
		{"bad timezone", map[string]string{"JWT_SECRET": "x", "STORE": "memory", "APP_TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: "1", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=h port=1 user=u password=p dbname=n sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
