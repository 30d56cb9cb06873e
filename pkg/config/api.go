package config

import "time"

// APIConfig holds runtime configuration for the census API service.
type APIConfig struct {
	Environment          string
	Addr                 string
	DatabaseURL          string
	MigrationsDir        string
	LogLevel             string
	UploadMaxBytes       int64
	CatalogMaxAgeSeconds int
	RateLimitRedisAddr   string
	RateLimitRedisPass   string
	RateLimitRedisDB     int
	ShutdownGrace        time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:          GetString("APP_ENV", "development"),
		Addr:                 GetString("API_ADDR", ":4000"),
		DatabaseURL:          GetString("DATABASE_URL", "postgres://census:census@db:5432/census?sslmode=disable"),
		MigrationsDir:        GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		LogLevel:             GetString("LOG_LEVEL", "info"),
		UploadMaxBytes:       GetInt64("UPLOAD_MAX_BYTES", 64<<20),
		CatalogMaxAgeSeconds: GetInt("CATALOG_MAX_AGE_SECONDS", 3600),
		RateLimitRedisAddr:   GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:   GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:     GetInt("RATE_LIMIT_REDIS_DB", 0),
		ShutdownGrace:        time.Duration(GetInt("SHUTDOWN_GRACE_SECONDS", 10)) * time.Second,
	}
}
