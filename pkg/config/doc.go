// Package config loads CareLink configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// CARELINK_CONFIG_FILE, then CARELINK_* environment variables.
//
// Server settings:
//
//	CARELINK_HOST="0.0.0.0"
//	CARELINK_PORT="5000"
//	CARELINK_HEALTH_PORT="9090"
//
// Storage settings:
//
//	CARELINK_STORAGE_TYPE="postgres"  # postgres, memory
//	CARELINK_POSTGRES_URL="postgres://localhost/carelink"
//	CARELINK_REDIS_URL="redis://localhost:6379"  # shared login limiter
//
// Auth settings:
//
//	CARELINK_JWT_SECRET="..."       # required
//	CARELINK_ADMIN_USERNAME="admin" # super-admin, set both or neither
//	CARELINK_ADMIN_PASSWORD="..."
//	CARELINK_TOKEN_TTL="8h"
//
// Security settings:
//
//	CARELINK_CORS_ORIGINS="http://localhost:3000"
//	CARELINK_LOGIN_RATE_LIMIT="10"
//	CARELINK_ENFORCE_RECORD_OWNERSHIP="false"
//
// Observability settings:
//
//	CARELINK_LOG_LEVEL="info"  # debug, info, warn, error
//	CARELINK_OTEL_ENABLED="true"
//	CARELINK_OTEL_ENDPOINT="otel-collector:4317"
//	CARELINK_OTEL_ENVIRONMENT="production"
//
// The equivalent YAML file uses snake_case keys grouped by section:
//
//	auth:
//	  jwt_secret: change-me
//	  token_ttl: 8h
//	security:
//	  cors_origins: ["https://carelink.example"]
package config
