package config

import (
	"reflect"
	"testing"
	"time"
)

func TestEnvReader_Defaults(t *testing.T) {
	t.Setenv("ENV", EnvLocal)
	t.Setenv("JWT_SIGNING_KEY", "secret")

	cfg, err := NewEnvReader().Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Fatalf("got driver %q want %q", cfg.Storage.Driver, StorageDriverPostgres)
	}
	if cfg.HTTP.Port != "8080" || cfg.HTTP.ShutdownTimeout != 5*time.Second {
		t.Fatalf("got http config %+v", cfg.HTTP)
	}
	if !reflect.DeepEqual(cfg.HTTP.AllowedOrigins, []string{"*"}) {
		t.Fatalf("got origins %v want [*]", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Postgres.Port != 5432 || cfg.Postgres.MaxConns != 10 {
		t.Fatalf("got postgres config %+v", cfg.Postgres)
	}
}

func TestEnvReader_Overrides(t *testing.T) {
	t.Setenv("ENV", EnvProd)
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("JWT_ISSUER", "auth.example.com")
	t.Setenv("STORAGE_DRIVER", StorageDriverMemory)
	t.Setenv("HTTP_CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := NewEnvReader().Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverMemory || cfg.JWT.Issuer != "auth.example.com" {
		t.Fatalf("got %+v", cfg)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.HTTP.AllowedOrigins, want) {
		t.Fatalf("got origins %v want %v", cfg.HTTP.AllowedOrigins, want)
	}
}

func TestEnvReader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing signing key", map[string]string{"ENV": EnvDev}},
		{"unknown env", map[string]string{"ENV": "staging", "JWT_SIGNING_KEY": "k"}},
		{"unknown driver", map[string]string{"ENV": EnvDev, "JWT_SIGNING_KEY": "k", "STORAGE_DRIVER": "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SIGNING_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := NewEnvReader().Read(); err == nil {
				t.Fatalf("got nil error")
			}
		})
	}
}
