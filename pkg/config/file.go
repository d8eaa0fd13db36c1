package config

import (
	"time"

	"github.com/platinummonkey/carelink/pkg/observability"
)

// fileConfig mirrors Config for YAML. Pointer fields distinguish "absent"
// from the zero value so the file only overrides what it names.
type fileConfig struct {
	Server struct {
		Host            *string        `yaml:"host"`
		Port            *string        `yaml:"port"`
		HealthPort      *string        `yaml:"health_port"`
		ReadTimeout     *time.Duration `yaml:"read_timeout"`
		WriteTimeout    *time.Duration `yaml:"write_timeout"`
		IdleTimeout     *time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout *time.Duration `yaml:"shutdown_timeout"`
		MaxBodyBytes    *int64         `yaml:"max_body_bytes"`
	} `yaml:"server"`

	Storage struct {
		Type          *string `yaml:"type"`
		PostgresURL   *string `yaml:"postgres_url"`
		MaxConns      *int    `yaml:"postgres_max_conns"`
		MinConns      *int    `yaml:"postgres_min_conns"`
		AutoMigrate   *bool   `yaml:"auto_migrate"`
		RedisURL      *string `yaml:"redis_url"`
		RedisPassword *string `yaml:"redis_password"`
		RedisDB       *int    `yaml:"redis_db"`
	} `yaml:"storage"`

	Auth struct {
		AdminUsername *string        `yaml:"admin_username"`
		AdminPassword *string        `yaml:"admin_password"`
		JWTSecret     *string        `yaml:"jwt_secret"`
		JWTIssuer     *string        `yaml:"jwt_issuer"`
		TokenTTL      *time.Duration `yaml:"token_ttl"`
		BcryptCost    *int           `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Security struct {
		CORSOrigins            []string `yaml:"cors_origins"`
		LoginRateLimit         *int     `yaml:"login_rate_limit"`
		LoginRateBurst         *int     `yaml:"login_rate_burst"`
		APIRateLimit           *int     `yaml:"api_rate_limit"`
		APIRateBurst           *int     `yaml:"api_rate_burst"`
		TrustProxy             *bool    `yaml:"trust_proxy"`
		EnforceRecordOwnership *bool    `yaml:"enforce_record_ownership"`
	} `yaml:"security"`

	Observability struct {
		LogLevel             *string  `yaml:"log_level"`
		MetricsEnabled       *bool    `yaml:"metrics_enabled"`
		GaugeRefreshSchedule *string  `yaml:"gauge_refresh_schedule"`
		OTelEnabled          *bool    `yaml:"otel_enabled"`
		OTelEndpoint         *string  `yaml:"otel_endpoint"`
		OTelServiceName      *string  `yaml:"otel_service_name"`
		OTelInsecure         *bool    `yaml:"otel_insecure"`
		OTelSampleRatio      *float64 `yaml:"otel_sample_ratio"`
		OTelEnvironment      *string  `yaml:"otel_environment"`
	} `yaml:"observability"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (f *fileConfig) apply(c *Config) {
	set(&c.Server.Host, f.Server.Host)
	set(&c.Server.Port, f.Server.Port)
	set(&c.Server.HealthPort, f.Server.HealthPort)
	set(&c.Server.ReadTimeout, f.Server.ReadTimeout)
	set(&c.Server.WriteTimeout, f.Server.WriteTimeout)
	set(&c.Server.IdleTimeout, f.Server.IdleTimeout)
	set(&c.Server.ShutdownTimeout, f.Server.ShutdownTimeout)
	set(&c.Server.MaxBodyBytes, f.Server.MaxBodyBytes)

	set(&c.Storage.Type, f.Storage.Type)
	set(&c.Storage.PostgresURL, f.Storage.PostgresURL)
	set(&c.Storage.PostgresMaxConns, f.Storage.MaxConns)
	set(&c.Storage.PostgresMinConns, f.Storage.MinConns)
	set(&c.Storage.AutoMigrate, f.Storage.AutoMigrate)
	set(&c.Storage.RedisURL, f.Storage.RedisURL)
	set(&c.Storage.RedisPassword, f.Storage.RedisPassword)
	set(&c.Storage.RedisDB, f.Storage.RedisDB)

	set(&c.Auth.AdminUsername, f.Auth.AdminUsername)
	set(&c.Auth.AdminPassword, f.Auth.AdminPassword)
	set(&c.Auth.JWTSecret, f.Auth.JWTSecret)
	set(&c.Auth.JWTIssuer, f.Auth.JWTIssuer)
	set(&c.Auth.TokenTTL, f.Auth.TokenTTL)
	set(&c.Auth.BcryptCost, f.Auth.BcryptCost)

	if len(f.Security.CORSOrigins) > 0 {
		c.Security.CORSOrigins = f.Security.CORSOrigins
	}
	set(&c.Security.LoginRateLimit, f.Security.LoginRateLimit)
	set(&c.Security.LoginRateBurst, f.Security.LoginRateBurst)
	set(&c.Security.APIRateLimit, f.Security.APIRateLimit)
	set(&c.Security.APIRateBurst, f.Security.APIRateBurst)
	set(&c.Security.TrustProxy, f.Security.TrustProxy)
	set(&c.Security.EnforceRecordOwnership, f.Security.EnforceRecordOwnership)

	if f.Observability.LogLevel != nil {
		c.Observability.LogLevel = observability.ParseLogLevel(*f.Observability.LogLevel)
	}
	set(&c.Observability.MetricsEnabled, f.Observability.MetricsEnabled)
	set(&c.Observability.GaugeRefreshSchedule, f.Observability.GaugeRefreshSchedule)
	set(&c.Observability.OTelEnabled, f.Observability.OTelEnabled)
	set(&c.Observability.OTelEndpoint, f.Observability.OTelEndpoint)
	set(&c.Observability.OTelServiceName, f.Observability.OTelServiceName)
	set(&c.Observability.OTelInsecure, f.Observability.OTelInsecure)
	set(&c.Observability.OTelSampleRatio, f.Observability.OTelSampleRatio)
	set(&c.Observability.OTelEnvironment, f.Observability.OTelEnvironment)
}
