// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, the policy clock, the classifier,
// authentication, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on minimal images
)

// ClassifierConfig selects and configures the domain classifier.
type ClassifierConfig struct {
	Provider     string        // CLASSIFIER_PROVIDER: keyword|openai
	Endpoint     string        // CLASSIFIER_ENDPOINT (chat-completions compatible)
	APIKey       string        // CLASSIFIER_API_KEY
	Model        string        // CLASSIFIER_MODEL
	Timeout      time.Duration // CLASSIFIER_TIMEOUT
	ProfilesPath string        // CATEGORY_PROFILES_PATH, optional markdown table
	MaxProfiles  int           // CATEGORY_PROFILES_MAX, 0 = every profile
	MinSubstring int           // CATEGORY_MIN_SUBSTRING, shortest keyword matched inside a label
}

// AuthConfig holds parent and operator authentication settings.
type AuthConfig struct {
	JWTSecret  string        // JWT_SECRET
	TokenTTL   time.Duration // TOKEN_TTL
	AdminToken string        // ADMIN_TOKEN; empty disables admin routes
}

// UsageConfig tunes heartbeat accounting.
type UsageConfig struct {
	SessionWindow    time.Duration // SESSION_WINDOW
	HeartbeatMax     time.Duration // HEARTBEAT_MAX
	HeartbeatDefault time.Duration // HEARTBEAT_DEFAULT
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-parental-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Policy
	Timezone            string         // IANA zone used for day boundaries
	Location            *time.Location // resolved Timezone
	AutoBlockCategories []string       // categories blocked automatically on first sight
	Usage               UsageConfig
	Classifier          ClassifierConfig
	Auth                AuthConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "app.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		// Policy
		Timezone:            getenv("TIMEZONE", "UTC"),
		AutoBlockCategories: splitCSV(getenv("AUTO_BLOCK_CATEGORIES", "Adult,Gambling")),
		Usage: UsageConfig{
			SessionWindow:    getdur("SESSION_WINDOW", 5*time.Minute),
			HeartbeatMax:     getdur("HEARTBEAT_MAX", 300*time.Second),
			HeartbeatDefault: getdur("HEARTBEAT_DEFAULT", 60*time.Second),
		},
		Classifier: ClassifierConfig{
			Provider:     strings.ToLower(getenv("CLASSIFIER_PROVIDER", "keyword")),
			Endpoint:     getenv("CLASSIFIER_ENDPOINT", ""),
			APIKey:       getenv("CLASSIFIER_API_KEY", ""),
			Model:        getenv("CLASSIFIER_MODEL", "gpt-4o-mini"),
			Timeout:      getdur("CLASSIFIER_TIMEOUT", 8*time.Second),
			ProfilesPath: getenv("CATEGORY_PROFILES_PATH", ""),
			MaxProfiles:  getint("CATEGORY_PROFILES_MAX", 0),
			MinSubstring: getint("CATEGORY_MIN_SUBSTRING", 4),
		},
		Auth: AuthConfig{
			JWTSecret:  getenv("JWT_SECRET", ""),
			TokenTTL:   getdur("TOKEN_TTL", 24*time.Hour),
			AdminToken: getenv("ADMIN_TOKEN", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-parental-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validate reports every invalid setting at once and resolves Location.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DBDriver {
	case "sqlite":
		check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(c.DatabaseURL) != "", "DATABASE_URL is required when DB_DRIVER=postgres")
	default:
		errs = append(errs, errors.New("DB_DRIVER must be one of: sqlite, postgres"))
	}

	if loc, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	} else {
		c.Location = loc
	}
	check(c.Usage.SessionWindow > 0, "SESSION_WINDOW must be > 0")
	check(c.Usage.HeartbeatMax >= time.Second, "HEARTBEAT_MAX must be >= 1s")
	check(c.Usage.HeartbeatDefault >= time.Second && c.Usage.HeartbeatDefault <= c.Usage.HeartbeatMax,
		"HEARTBEAT_DEFAULT must be in [1s, HEARTBEAT_MAX]")

	switch c.Classifier.Provider {
	case "keyword":
	case "openai":
		check(strings.TrimSpace(c.Classifier.Endpoint) != "", "CLASSIFIER_ENDPOINT is required when CLASSIFIER_PROVIDER=openai")
	default:
		errs = append(errs, errors.New("CLASSIFIER_PROVIDER must be one of: keyword, openai"))
	}
	check(c.Classifier.Timeout > 0, "CLASSIFIER_TIMEOUT must be > 0")
	check(c.Classifier.MaxProfiles >= 0, "CATEGORY_PROFILES_MAX must be >= 0")
	check(c.Classifier.MinSubstring >= 0, "CATEGORY_MIN_SUBSTRING must be >= 0")

	check(c.Auth.TokenTTL > 0, "TOKEN_TTL must be > 0")
	check(c.Auth.JWTSecret != "" || c.GinMode != "release", "JWT_SECRET must be set in release mode")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}


func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
