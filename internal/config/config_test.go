package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("GROUPCAL_AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendSQLite)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Notify.Backend != NotifierLog {
		t.Errorf("Notify.Backend = %q, want %q", cfg.Notify.Backend, NotifierLog)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groupcal.yaml")
	content := `
http_addr: ":9090"
auth:
  jwt_secret: file-secret
  token_ttl: 2h
store:
  backend: Postgres
  database_url: postgres://localhost/groupcal
notify:
  backend: redis
  redis_addr: redis:6379
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GROUPCAL_HTTP_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q, want env override :7070", cfg.HTTPAddr)
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("Store.Backend = %q, want normalized %q", cfg.Store.Backend, BackendPostgres)
	}
	if cfg.Store.DatabaseURL != "postgres://localhost/groupcal" {
		t.Errorf("Store.DatabaseURL = %q", cfg.Store.DatabaseURL)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 2h", cfg.Auth.TokenTTL)
	}
	if cfg.Notify.RedisAddr != "redis:6379" {
		t.Errorf("Notify.RedisAddr = %q", cfg.Notify.RedisAddr)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Auth:   AuthConfig{JWTSecret: "s", TokenTTL: time.Hour},
			Store:  StoreConfig{Backend: BackendSQLite, SQLitePath: "x.db"},
			Notify: NotifyConfig{Backend: NotifierLog},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "firebase" }, wantErr: "unknown store.backend"},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Backend = BackendPostgres }, wantErr: "database_url"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Backend = BackendMongo }, wantErr: "mongo_uri"},
		{name: "rest without url", mutate: func(c *Config) { c.Store.Backend = BackendREST }, wantErr: "rest_base_url"},
		{
			name: "rest serving rest",
			mutate: func(c *Config) {
				c.Store.Backend = BackendREST
				c.Store.RESTBaseURL = "http://peer"
				c.Store.ServeREST = true
			},
			wantErr: "cannot be combined",
		},
		{
			name: "rest without token",
			mutate: func(c *Config) {
				c.Store.Backend = BackendREST
				c.Store.RESTBaseURL = "http://peer"
			},
			wantErr: "rest_token",
		},
		{name: "serve rest without token", mutate: func(c *Config) { c.Store.ServeREST = true }, wantErr: "serve_rest_token"},
		{name: "unknown notifier", mutate: func(c *Config) { c.Notify.Backend = "apns" }, wantErr: "unknown notify.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
