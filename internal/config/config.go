package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Audit    AuditConfig
	Serp     SerpConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	EnableCORS      bool          `envconfig:"SERVER_ENABLE_CORS" default:"true"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"leadaudit"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"leadaudit"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"1m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds object storage settings for audit HTML snapshots
type StorageConfig struct {
	Enabled         bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket          string `envconfig:"STORAGE_BUCKET" default:"leadaudit"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
	SnapshotPath    string `envconfig:"STORAGE_SNAPSHOT_PATH" default:"snapshots"`
}

// AuditConfig holds the knobs of the website audit engine
type AuditConfig struct {
	// ScoreThreshold is the default callability cutoff; callers may
	// override it per invocation. Must stay in [0,100].
	ScoreThreshold int `envconfig:"AUDIT_SCORE_THRESHOLD" default:"60"`

	// SkipSerp bypasses the costed external SERP corroboration check.
	SkipSerp bool `envconfig:"AUDIT_SKIP_SERP" default:"false"`

	// CrawlBudget is the total wall-clock budget per audit, across all
	// sub-fetches. Exceeding it truncates remaining checks to unknown.
	CrawlBudget time.Duration `envconfig:"AUDIT_CRAWL_BUDGET" default:"90s"`

	// RequestTimeout bounds each individual fetch.
	RequestTimeout time.Duration `envconfig:"AUDIT_REQUEST_TIMEOUT" default:"15s"`

	// MaxRetries applies to transient network errors only. Any HTTP
	// response, 4xx and 5xx included, is recorded and never retried.
	MaxRetries int `envconfig:"AUDIT_MAX_RETRIES" default:"2"`

	RequestsPerSecond float64 `envconfig:"AUDIT_REQUESTS_PER_SECOND" default:"2"`
	UserAgent         string  `envconfig:"AUDIT_USER_AGENT" default:"Mozilla/5.0 (compatible; KaralisAudit/1.0)"`

	// UseBrowserProbe switches the performance probe to the headless
	// browser implementation (real render timing).
	UseBrowserProbe bool `envconfig:"AUDIT_USE_BROWSER_PROBE" default:"false"`

	// WeightsFile optionally overrides the built-in scoring weights.
	WeightsFile string `envconfig:"AUDIT_WEIGHTS_FILE" default:""`
}

// SerpConfig holds settings for the external SERP inspection service
type SerpConfig struct {
	BaseURL string        `envconfig:"SERP_BASE_URL" default:""`
	APIKey  string        `envconfig:"SERP_API_KEY" default:""`
	Timeout time.Duration `envconfig:"SERP_TIMEOUT" default:"10s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Audit.ScoreThreshold < 0 || c.Audit.ScoreThreshold > 100 {
		errs = append(errs, "AUDIT_SCORE_THRESHOLD must be between 0 and 100")
	}
	if c.Audit.MaxRetries < 0 {
		errs = append(errs, "AUDIT_MAX_RETRIES must not be negative")
	}
	if c.Audit.CrawlBudget <= 0 {
		errs = append(errs, "AUDIT_CRAWL_BUDGET must be positive")
	}
	if c.Audit.RequestTimeout <= 0 {
		errs = append(errs, "AUDIT_REQUEST_TIMEOUT must be positive")
	}
	if c.Audit.RequestTimeout > c.Audit.CrawlBudget {
		errs = append(errs, "AUDIT_REQUEST_TIMEOUT must not exceed AUDIT_CRAWL_BUDGET")
	}
	if c.Audit.RequestsPerSecond <= 0 {
		errs = append(errs, "AUDIT_REQUESTS_PER_SECOND must be positive")
	}
	if c.Env == EnvProduction && c.Database.Password == "" {
		errs = append(errs, "DB_PASSWORD is required in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
