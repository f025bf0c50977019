// Package config loads runtime configuration from an optional YAML file and the environment.
//
// Every key can be overridden by an environment variable prefixed with GROUPCAL_, with dots
// replaced by underscores (store.backend -> GROUPCAL_STORE_BACKEND).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backend names accepted by store.backend.
const (
	BackendSQLite   = "sqlite"
	BackendGorm     = "gorm"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendREST     = "rest"
)

// Notifier backend names accepted by notify.backend.
const (
	NotifierLog   = "log"
	NotifierRedis = "redis"
)

// Config contains runtime configuration.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`

	Auth   AuthConfig   `mapstructure:"auth"`
	Store  StoreConfig  `mapstructure:"store"`
	Notify NotifyConfig `mapstructure:"notify"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// StoreConfig selects and configures the Group Record Store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`

	SQLitePath string `mapstructure:"sqlite_path"`
	GormDSN    string `mapstructure:"gorm_dsn"`

	DatabaseURL string `mapstructure:"database_url"`

	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	RESTBaseURL string        `mapstructure:"rest_base_url"`
	RESTToken   string        `mapstructure:"rest_token"`
	RESTTimeout time.Duration `mapstructure:"rest_timeout"`

	// ServeREST mounts the REST store API under /store/ so other instances can use
	// this one as their rest backend.
	ServeREST      bool   `mapstructure:"serve_rest"`
	ServeRESTToken string `mapstructure:"serve_rest_token"`
}

type NotifyConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisChannel  string `mapstructure:"redis_channel"`
}

var defaults = map[string]any{
	"http_addr":              ":8080",
	"log_level":              "info",
	"auth.jwt_secret":        "",
	"auth.token_ttl":         24 * time.Hour,
	"store.backend":          BackendSQLite,
	"store.sqlite_path":      "./data/groupcal.db",
	"store.gorm_dsn":         "./data/groupcal-gorm.db",
	"store.database_url":     "",
	"store.mongo_uri":        "",
	"store.mongo_database":   "groupcal",
	"store.rest_base_url":    "",
	"store.rest_token":       "",
	"store.rest_timeout":     10 * time.Second,
	"store.serve_rest":       false,
	"store.serve_rest_token": "",
	"notify.backend":         NotifierLog,
	"notify.redis_addr":      "localhost:6379",
	"notify.redis_password":  "",
	"notify.redis_db":        0,
	"notify.redis_channel":   "groupcal:notifications",
}

// Load reads configuration from path (if non-empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("GROUPCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Notify.Backend = strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be > 0")
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite backend")
		}
	case BackendGorm:
		if c.Store.GormDSN == "" {
			return errors.New("store.gorm_dsn is required for the gorm backend")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres backend")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store.mongo_uri is required for the mongo backend")
		}
	case BackendREST:
		if c.Store.RESTBaseURL == "" {
			return errors.New("store.rest_base_url is required for the rest backend")
		}
		if c.Store.ServeREST {
			return errors.New("store.serve_rest cannot be combined with the rest backend")
		}
		if c.Store.RESTToken == "" {
			return errors.New("store.rest_token is required for the rest backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	if c.Store.ServeREST && c.Store.ServeRESTToken == "" {
		return errors.New("store.serve_rest_token is required when store.serve_rest is enabled")
	}

	switch c.Notify.Backend {
	case NotifierLog:
	case NotifierRedis:
		if c.Notify.RedisAddr == "" {
			return errors.New("notify.redis_addr is required for the redis notifier")
		}
	default:
		return fmt.Errorf("unknown notify.backend %q", c.Notify.Backend)
	}

	return nil
}
