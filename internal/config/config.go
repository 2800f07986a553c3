package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// DefaultPath is where Load looks for the optional config file
const DefaultPath = "configs/config.yaml"

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	// Auth is the single shared account. PasswordHash (bcrypt) wins over Password.
	Auth struct {
		Username     string `mapstructure:"username"`
		Password     string `mapstructure:"password"`
		PasswordHash string `mapstructure:"password_hash"`
	} `mapstructure:"auth"`

	Storage struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Backup struct {
		Remote struct {
			Enabled       bool   `mapstructure:"enabled"`
			Endpoint      string `mapstructure:"endpoint"`
			Bucket        string `mapstructure:"bucket"`
			AccessKey     string `mapstructure:"access_key"`
			SecretKey     string `mapstructure:"secret_key"`
			Region        string `mapstructure:"region"`
			Prefix        string `mapstructure:"prefix"`
			IntervalHours int    `mapstructure:"interval_hours"`
		} `mapstructure:"remote"`
	} `mapstructure:"backup"`

	App struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"app"`
}

// DSN is the Postgres connection URL for the configured database
func (c *Config) DSN() string {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
	if c.Database.SSLMode != "" {
		dsn += "?sslmode=" + c.Database.SSLMode
	}
	return dsn
}

// BackupInterval is the period of the remote backup scheduler
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.Remote.IntervalHours) * time.Hour
}

// Load reads DefaultPath and the environment, exiting on error
func Load() *Config {
	cfg, err := LoadFrom(DefaultPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	return cfg
}

// LoadFrom reads an optional YAML file at path, then PPCP_* environment
// variables (PPCP_SERVER_PORT overrides server.port, and so on)
func LoadFrom(path string) (*Config, error) {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	v.SetEnvPrefix("PPCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found at %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	applyLegacyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == "" {
		log.Printf("[Config] WARNING: jwt.secret not set, generating an ephemeral secret; sessions end on restart")
		cfg.JWT.Secret = randomSecret()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ppcp")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "ppcp-backend")

	v.SetDefault("auth.username", "mikrostamp")
	v.SetDefault("auth.password", "mk0504")
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("storage.driver", StoragePostgres)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("backup.remote.enabled", false)
	v.SetDefault("backup.remote.endpoint", "")
	v.SetDefault("backup.remote.bucket", "")
	v.SetDefault("backup.remote.access_key", "")
	v.SetDefault("backup.remote.secret_key", "")
	v.SetDefault("backup.remote.region", "auto")
	v.SetDefault("backup.remote.prefix", "ppcp/")
	v.SetDefault("backup.remote.interval_hours", 24)

	v.SetDefault("app.timezone", "America/Sao_Paulo")
}

// applyLegacyEnv honours the unprefixed DB_* and JWT_SECRET variables
// that deployments already set
func applyLegacyEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage.Driver)
	}
	if strings.TrimSpace(c.Auth.Username) == "" {
		return errors.New("auth.username must not be empty")
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return errors.New("auth.password or auth.password_hash must be set")
	}
	if c.JWT.ExpirationHours <= 0 {
		return fmt.Errorf("jwt.expiration_hours must be positive, got %d", c.JWT.ExpirationHours)
	}
	r := c.Backup.Remote
	if r.Enabled {
		if r.Endpoint == "" || r.Bucket == "" || r.AccessKey == "" || r.SecretKey == "" {
			return errors.New("backup.remote requires endpoint, bucket, access_key and secret_key when enabled")
		}
		if r.IntervalHours < 0 {
			return fmt.Errorf("backup.remote.interval_hours must not be negative, got %d", r.IntervalHours)
		}
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("[Config] failed to generate jwt secret: %v", err)
	}
	return hex.EncodeToString(b)
}
