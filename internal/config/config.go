package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config carries the settings shared by every service binary. Each binary
// validates only the fields it needs (see the Require* helpers), so a single
// .env can drive the whole stack in local development.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSecret       string `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES"`

	BillingGRPCAddr     string `mapstructure:"BILLING_GRPC_ADDR"`
	AuthServiceURL      string `mapstructure:"AUTH_SERVICE_URL"`
	PatientServiceURL   string `mapstructure:"PATIENT_SERVICE_URL"`
	AnalyticsServiceURL string `mapstructure:"ANALYTICS_SERVICE_URL"`

	EventSecret string `mapstructure:"EVENT_SECRET"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
}

var envKeys = []string{
	"PORT", "ENV",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "TOKEN_TTL_MINUTES",
	"BILLING_GRPC_ADDR", "AUTH_SERVICE_URL", "PATIENT_SERVICE_URL", "ANALYTICS_SERVICE_URL",
	"EVENT_SECRET", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"MIGRATIONS_DIR",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the service is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RequireDatabase verifies that a database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// RequireJWTSecret verifies that a signing secret is configured. Outside
// development the secret must also meet a minimum length so that HS256
// tokens are not trivially forgeable.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes outside development, got %d", len(c.JWTSecret))
	}
	return nil
}

// RequireUpstreams verifies that the gateway knows where to forward traffic.
func (c *Config) RequireUpstreams() error {
	if c.AuthServiceURL == "" {
		return fmt.Errorf("AUTH_SERVICE_URL is required")
	}
	if c.PatientServiceURL == "" {
		return fmt.Errorf("PATIENT_SERVICE_URL is required")
	}
	return nil
}

// RequireEventSecret verifies that the shared webhook signing secret is set.
func (c *Config) RequireEventSecret() error {
	if c.EventSecret == "" {
		return fmt.Errorf("EVENT_SECRET is required")
	}
	return nil
}
