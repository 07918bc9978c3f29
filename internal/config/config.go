package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	DemoMode        bool          `mapstructure:"DEMO_MODE"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	SupabaseURL     string        `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey string        `mapstructure:"SUPABASE_ANON_KEY"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	SigningKey      string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
	GeminiAPIKey    string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel     string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL   string        `mapstructure:"GEMINI_BASE_URL"`
	IdentityTimeout time.Duration `mapstructure:"IDENTITY_TIMEOUT"`
	AnalysisTimeout time.Duration `mapstructure:"ANALYSIS_TIMEOUT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
}

// devSigningKey signs session tokens when ENV=development and no key is set.
const devSigningKey = "quanta-medix-development-signing-key"

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DEMO_MODE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "REDIS_URL",
	"SESSION_SIGNING_KEY", "SESSION_TTL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
	"IDENTITY_TIMEOUT", "ANALYSIS_TIMEOUT", "REQUEST_TIMEOUT",
	"CORS_ORIGINS",
}

func Load() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("IDENTITY_TIMEOUT", "5s")
	v.SetDefault("ANALYSIS_TIMEOUT", "30s")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	// Demo accounts are on by default in development only.
	if !v.IsSet("DEMO_MODE") {
		cfg.DemoMode = cfg.IsDev()
	}

	if cfg.SigningKey == "" && cfg.IsDev() {
		cfg.SigningKey = devSigningKey
	}
	cfg.SupabaseURL = strings.TrimRight(cfg.SupabaseURL, "/")

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DemoEnabled reports whether the built-in demo accounts may be used.
func (c *Config) DemoEnabled() bool {
	return c.DemoMode
}

// PersistenceConfigured reports whether a database is available. Without
// one the dashboard serves fixture data.
func (c *Config) PersistenceConfigured() bool {
	return c.DatabaseURL != ""
}

func (c *Config) IdentityConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

func (c *Config) OracleConfigured() bool {
	return c.GeminiAPIKey != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "production" && c.Env != "test" {
		return fmt.Errorf("ENV must be \"development\", \"production\", or \"test\", got %q", c.Env)
	}
	if !c.IsDev() && c.SigningKey == "" {
		return fmt.Errorf("SESSION_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if len(c.SigningKey) > 0 && len(c.SigningKey) < 16 {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least 16 bytes, got %d", len(c.SigningKey))
	}
	if (c.SupabaseURL == "") != (c.SupabaseAnonKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set together")
	}
	if c.IsProduction() && c.DemoMode {
		return fmt.Errorf("DEMO_MODE cannot be enabled in production")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.IdentityTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("IDENTITY_TIMEOUT and ANALYSIS_TIMEOUT must be positive")
	}
	return nil
}
