package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// ConfigFileEnv names an optional YAML file loaded before the environment
const ConfigFileEnv = "CARELINK_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Auth configuration
	Auth AuthConfig

	// Security configuration
	Security SecurityConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds credential and token settings
type AuthConfig struct {
	// Super-admin credentials. Both must be set for the super-admin to log in.
	AdminUsername string
	AdminPassword string

	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int
}

// SecurityConfig holds request-level protections
type SecurityConfig struct {
	CORSOrigins []string

	LoginRateLimit int // per minute, per client IP
	LoginRateBurst int
	APIRateLimit   int // per minute, per caller; 0 disables
	APIRateBurst   int
	TrustProxy     bool // honour X-Forwarded-For

	// EnforceRecordOwnership limits patient and mapping writes to their creator
	EnforceRecordOwnership bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool
	// Cron spec for refreshing business gauges
	GaugeRefreshSchedule string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
	OTelEnvironment    string // deployment.environment resource attribute
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			JWTIssuer: "carelink",
			TokenTTL:  8 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:    []string{"http://localhost:3000"},
			LoginRateLimit: 10,
			LoginRateBurst: 5,
		},
		Observability: ObservabilityConfig{
			LogLevel:             observability.InfoLevel,
			MetricsEnabled:       true,
			GaugeRefreshSchedule: "@every 1m",
			OTelEndpoint:         "localhost:4317",
			OTelServiceName:      "carelink",
			OTelServiceVersion:   "1.0.0",
			OTelInsecure:         true,
			OTelSampleRatio:      1.0,
			OTelEnvironment:      "development",
		},
	}
}

// LoadConfig loads defaults, then the YAML file named by CARELINK_CONFIG_FILE,
// then environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv(ConfigFileEnv, ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile overlays a YAML file on cfg
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	f.apply(c)
	return nil
}

// applyEnv overlays CARELINK_* environment variables on cfg
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("CARELINK_HOST", s.Host)
	s.Port = getEnv("CARELINK_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("CARELINK_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("CARELINK_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("CARELINK_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("CARELINK_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("CARELINK_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.HealthPort = getEnv("CARELINK_HEALTH_PORT", s.HealthPort)

	st := &c.Storage
	st.Type = getEnv("CARELINK_STORAGE_TYPE", st.Type)
	st.PostgresURL = getEnv("CARELINK_POSTGRES_URL", st.PostgresURL)
	if maxConns := getEnvInt("CARELINK_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		st.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("CARELINK_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		st.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("CARELINK_POSTGRES_TIMEOUT", 0); timeout > 0 {
		st.PostgresTimeout = timeout
	}
	st.AutoMigrate = getEnvBool("CARELINK_AUTO_MIGRATE", st.AutoMigrate)
	st.RedisURL = getEnv("CARELINK_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("CARELINK_REDIS_PASSWORD", st.RedisPassword)
	if redisDB := getEnvInt("CARELINK_REDIS_DB", -1); redisDB >= 0 {
		st.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("CARELINK_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		st.RedisPoolSize = redisPoolSize
	}

	a := &c.Auth
	a.AdminUsername = getEnv("CARELINK_ADMIN_USERNAME", a.AdminUsername)
	a.AdminPassword = getEnv("CARELINK_ADMIN_PASSWORD", a.AdminPassword)
	a.JWTSecret = getEnv("CARELINK_JWT_SECRET", a.JWTSecret)
	a.JWTIssuer = getEnv("CARELINK_JWT_ISSUER", a.JWTIssuer)
	a.TokenTTL = getEnvDuration("CARELINK_TOKEN_TTL", a.TokenTTL)
	a.BcryptCost = getEnvInt("CARELINK_BCRYPT_COST", a.BcryptCost)

	sec := &c.Security
	if origins := getEnv("CARELINK_CORS_ORIGINS", ""); origins != "" {
		sec.CORSOrigins = splitList(origins)
	}
	sec.LoginRateLimit = getEnvInt("CARELINK_LOGIN_RATE_LIMIT", sec.LoginRateLimit)
	sec.LoginRateBurst = getEnvInt("CARELINK_LOGIN_RATE_BURST", sec.LoginRateBurst)
	sec.APIRateLimit = getEnvInt("CARELINK_API_RATE_LIMIT", sec.APIRateLimit)
	sec.APIRateBurst = getEnvInt("CARELINK_API_RATE_BURST", sec.APIRateBurst)
	sec.TrustProxy = getEnvBool("CARELINK_TRUST_PROXY", sec.TrustProxy)
	sec.EnforceRecordOwnership = getEnvBool("CARELINK_ENFORCE_RECORD_OWNERSHIP", sec.EnforceRecordOwnership)

	o := &c.Observability
	if level := getEnv("CARELINK_LOG_LEVEL", ""); level != "" {
		o.LogLevel = observability.ParseLogLevel(level)
	}
	o.MetricsEnabled = getEnvBool("CARELINK_METRICS_ENABLED", o.MetricsEnabled)
	o.GaugeRefreshSchedule = getEnv("CARELINK_GAUGE_REFRESH_SCHEDULE", o.GaugeRefreshSchedule)
	o.OTelEnabled = getEnvBool("CARELINK_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("CARELINK_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("CARELINK_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("CARELINK_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("CARELINK_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("CARELINK_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
	o.OTelEnvironment = getEnv("CARELINK_OTEL_ENVIRONMENT", o.OTelEnvironment)
}

// SentinelEnabled reports whether super-admin login is configured
func (a AuthConfig) SentinelEnabled() bool {
	return a.AdminUsername != "" && a.AdminPassword != ""
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

	// Validate storage config based on type
	switch c.Storage.Type {
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid storage type: %s (must be postgres or memory)", c.Storage.Type)
	}

	// Validate auth config
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (CARELINK_JWT_SECRET)")
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("admin username and password must be set together")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}

	if c.Security.LoginRateLimit < 0 || c.Security.APIRateLimit < 0 {
		return fmt.Errorf("rate limits must not be negative")
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

	return nil
}

// splitList splits a comma-separated list, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
