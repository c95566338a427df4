package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/taskdeck/pkg/auth"
	"github.com/platinummonkey/taskdeck/pkg/observability"
	"github.com/platinummonkey/taskdeck/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// JWT verification configuration
	JWT JWTConfig `yaml:"jwt"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// Audit configuration
	Audit AuditConfig `yaml:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	MaxBodyBytes       int64    `yaml:"max_body_bytes"`
}

// JWTConfig holds token verification settings. The secret is the shared
// HMAC key; tokens are verified only, never issued here.
type JWTConfig struct {
	Secret      string        `yaml:"secret"`
	Algorithm   string        `yaml:"algorithm"`
	MaxTokenTTL time.Duration `yaml:"max_token_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging. LogLevel is derived from LogLevelName after loading.
	LogLevel     observability.LogLevel `yaml:"-"`
	LogLevelName string                 `yaml:"log_level"`

	// Metrics
	MetricsEnabled         bool   `yaml:"metrics_enabled"`
	MetricsRefreshSchedule string `yaml:"metrics_refresh_schedule"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	FileEnabled bool   `yaml:"file_enabled"`
	FilePath    string `yaml:"file_path"`
	DBEnabled   bool   `yaml:"db_enabled"`
}

// LoadConfig loads configuration from an optional YAML file named by
// TASKDECK_CONFIG_FILE, then applies environment variable overrides.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("TASKDECK_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               "8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			HealthPort:         "9090",
			CORSAllowedOrigins: []string{"*"},
			MaxBodyBytes:       1 << 20,
		},
		JWT: JWTConfig{
			Algorithm:   "HS256",
			MaxTokenTTL: 24 * time.Hour,
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevelName:           "info",
			MetricsEnabled:         true,
			MetricsRefreshSchedule: "@every 1m",
			OTelEndpoint:           "localhost:4317",
			OTelServiceName:        "taskdeck",
			OTelServiceVersion:     "1.0.0",
			OTelInsecure:           true,
		},
		Audit: AuditConfig{
			FilePath: "audit.log",
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv overrides config fields from environment variables. Every
// default here is the current value, so file-provided settings survive
// unless the environment says otherwise.
func applyEnv(cfg *Config) {
	// Server
	cfg.Server.Host = getEnv("TASKDECK_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("TASKDECK_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("TASKDECK_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("TASKDECK_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("TASKDECK_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("TASKDECK_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("TASKDECK_HEALTH_PORT", cfg.Server.HealthPort)
	if origins := getEnv("TASKDECK_CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.CORSAllowedOrigins = splitAndTrim(origins)
	}
	cfg.Server.MaxBodyBytes = getEnvInt64("TASKDECK_MAX_BODY_BYTES", cfg.Server.MaxBodyBytes)

	// JWT
	cfg.JWT.Secret = getEnv("TASKDECK_JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.Algorithm = getEnv("TASKDECK_JWT_ALGORITHM", cfg.JWT.Algorithm)
	cfg.JWT.MaxTokenTTL = getEnvDuration("TASKDECK_JWT_MAX_TOKEN_TTL", cfg.JWT.MaxTokenTTL)

	// Storage
	cfg.Storage.PostgresURL = getEnv("TASKDECK_POSTGRES_URL", cfg.Storage.PostgresURL)
	cfg.Storage.PostgresMaxConns = getEnvInt("TASKDECK_POSTGRES_MAX_CONNS", cfg.Storage.PostgresMaxConns)
	cfg.Storage.PostgresMinConns = getEnvInt("TASKDECK_POSTGRES_MIN_CONNS", cfg.Storage.PostgresMinConns)
	cfg.Storage.PostgresTimeout = getEnvDuration("TASKDECK_POSTGRES_TIMEOUT", cfg.Storage.PostgresTimeout)
	cfg.Storage.RedisAddr = getEnv("TASKDECK_REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getEnv("TASKDECK_REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.RedisDB = getEnvInt("TASKDECK_REDIS_DB", cfg.Storage.RedisDB)
	cfg.Storage.RedisMaxRetries = getEnvInt("TASKDECK_REDIS_MAX_RETRIES", cfg.Storage.RedisMaxRetries)
	cfg.Storage.RedisPoolSize = getEnvInt("TASKDECK_REDIS_POOL_SIZE", cfg.Storage.RedisPoolSize)
	cfg.Storage.CacheEnabled = getEnvBool("TASKDECK_CACHE_ENABLED", cfg.Storage.CacheEnabled)
	cfg.Storage.L1CacheSize = getEnvInt("TASKDECK_L1_CACHE_SIZE", cfg.Storage.L1CacheSize)

	// Observability
	cfg.Observability.LogLevelName = getEnv("TASKDECK_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("TASKDECK_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.MetricsRefreshSchedule = getEnv("TASKDECK_METRICS_REFRESH_SCHEDULE", cfg.Observability.MetricsRefreshSchedule)
	cfg.Observability.OTelEnabled = getEnvBool("TASKDECK_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("TASKDECK_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("TASKDECK_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("TASKDECK_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("TASKDECK_OTEL_INSECURE", cfg.Observability.OTelInsecure)

	// Audit
	cfg.Audit.FileEnabled = getEnvBool("TASKDECK_AUDIT_FILE_ENABLED", cfg.Audit.FileEnabled)
	cfg.Audit.FilePath = getEnv("TASKDECK_AUDIT_FILE_PATH", cfg.Audit.FilePath)
	cfg.Audit.DBEnabled = getEnvBool("TASKDECK_AUDIT_DB_ENABLED", cfg.Audit.DBEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate JWT config. The service must not start without a real
	// secret; there is no default to fall back to.
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required (set TASKDECK_JWT_SECRET)")
	}
	if len(c.JWT.Secret) < auth.MinSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes", auth.MinSecretLength)
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("invalid JWT algorithm: %s (must be HS256, HS384, or HS512)", c.JWT.Algorithm)
	}
	if c.JWT.MaxTokenTTL <= 0 {
		return fmt.Errorf("JWT max token TTL must be positive")
	}

	// Validate storage config
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.CacheEnabled && c.Storage.L1CacheSize <= 0 {
		return fmt.Errorf("L1 cache size must be positive when caching is enabled")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	// Validate audit config
	if c.Audit.FileEnabled && c.Audit.FilePath == "" {
		return fmt.Errorf("audit file path is required when file auditing is enabled")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
