package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless the database is configured and reachable.
	ReadinessRequireDB bool

	// If true, /metrics is served from the app registry.
	MetricsEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("STREAM_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("STREAM_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("STREAM_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("STREAM_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("STREAM_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("STREAM_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("STREAM_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("STREAM_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("STREAM_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("STREAM_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("STREAM_READINESS_REQUIRE_DB", false),

		MetricsEnabled: EnvBool("STREAM_METRICS_ENABLED", true),
	}
}
