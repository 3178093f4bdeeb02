package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort string
	LogLevel string
	Store    StoreConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Routing  RoutingConfig
	Dispatch DispatchConfig
	Upload   UploadConfig
	Audit    AuditConfig
}

// StoreConfig selects where rules, the file-upload policy and the model
// catalog table live.
type StoreConfig struct {
	Backend         string
	DatabaseURL     string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings. An empty Address disables
// Redis entirely.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// CatalogConfig controls where the model catalog is loaded from
type CatalogConfig struct {
	FilePath       string        // YAML providers/models file; empty means database only
	ReloadInterval time.Duration // 0 disables periodic reload
}

// RoutingConfig holds rule matching settings
type RoutingConfig struct {
	MatchMode          string        // model, prompt or any
	RuleReloadInterval time.Duration // how often to resync rules from the store
	ChangeChannel      string        // Redis Pub/Sub channel for rule changes
}

// DispatchConfig bounds provider calls
type DispatchConfig struct {
	Timeout time.Duration
}

// UploadConfig limits multipart file handling
type UploadConfig struct {
	MaxFileBytes    int64
	MaxContextBytes int
}

// AuditConfig holds configuration for the dispatch audit pipeline
type AuditConfig struct {
	Enabled      bool
	Writer       string        // database or s3
	QueueSize    int           // in-memory queue size
	BatchSize    int           // records per write
	BatchTimeout time.Duration // flush a partial batch after this long
	S3Bucket     string
	S3Region     string
	S3Prefix     string
	S3Endpoint   string // S3-compatible endpoint override (Minio)
	PodName      string // Pod identifier for multi-pod deployments
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8080"),
		LogLevel: os.Getenv("LOG_LEVEL"), // empty keeps the package default (debug when LOCAL=true)
		Store: StoreConfig{
			Backend:         strings.ToLower(getEnvString("STORE_BACKEND", BackendSQLite)),
			DatabaseURL:     os.Getenv("DATABASE_URL"),
			SQLitePath:      getEnvString("SQLITE_PATH", "routing_gateway.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Catalog: CatalogConfig{
			FilePath:       getEnvString("CATALOG_FILE", "catalog.yaml"),
			ReloadInterval: getEnvDuration("CATALOG_RELOAD_INTERVAL", 5*time.Minute),
		},
		Routing: RoutingConfig{
			MatchMode:          strings.ToLower(getEnvString("ROUTING_MATCH_MODE", "model")),
			RuleReloadInterval: getEnvDuration("RULE_RELOAD_INTERVAL", 1*time.Minute),
			ChangeChannel:      getEnvString("RULE_CHANGE_CHANNEL", "routing:rules:changed"),
		},
		Dispatch: DispatchConfig{
			Timeout: getEnvDuration("DISPATCH_TIMEOUT", 60*time.Second),
		},
		Upload: UploadConfig{
			MaxFileBytes:    getEnvInt64("UPLOAD_MAX_FILE_BYTES", 10<<20),      // default 10 MB
			MaxContextBytes: getEnvInt("UPLOAD_MAX_CONTEXT_BYTES", 16<<10), // default 16 KB
		},
		Audit: AuditConfig{
			Enabled:      getEnvBool("AUDIT_ENABLED", false),
			Writer:       strings.ToLower(getEnvString("AUDIT_WRITER", "database")),
			QueueSize:    getEnvInt("AUDIT_QUEUE_SIZE", 10000),
			BatchSize:    getEnvInt("AUDIT_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("AUDIT_BATCH_TIMEOUT", 5*time.Second),
			S3Bucket:     getEnvString("AUDIT_S3_BUCKET", ""),
			S3Region:     getEnvString("AUDIT_S3_REGION", "us-east-1"),
			S3Prefix:     getEnvString("AUDIT_S3_PREFIX", "dispatch/"),
			S3Endpoint:   getEnvString("AUDIT_S3_ENDPOINT", ""),
			PodName:      getEnvString("POD_NAME", "gateway-0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s backend", BackendSQLite)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Routing.MatchMode {
	case "model", "prompt", "any":
	default:
		return fmt.Errorf("unknown ROUTING_MATCH_MODE %q", c.Routing.MatchMode)
	}

	if c.Dispatch.Timeout <= 0 {
		return fmt.Errorf("DISPATCH_TIMEOUT must be positive")
	}

	if c.Audit.Enabled {
		switch c.Audit.Writer {
		case "database":
			if c.Store.Backend == BackendMemory {
				return fmt.Errorf("AUDIT_WRITER=database needs a postgres or sqlite store")
			}
		case "s3":
			if c.Audit.S3Bucket == "" {
				return fmt.Errorf("AUDIT_S3_BUCKET is required when AUDIT_WRITER=s3")
			}
		default:
			return fmt.Errorf("unknown AUDIT_WRITER %q", c.Audit.Writer)
		}
		if c.Audit.BatchSize <= 0 {
			return fmt.Errorf("AUDIT_BATCH_SIZE must be positive")
		}
	}

	return nil
}
