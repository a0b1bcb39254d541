package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// minAuthSecretLen is the minimum length of the session signing secret.
// Anything shorter makes HS256 session tokens trivially brute-forceable.
const minAuthSecretLen = 32

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	AuthSecret     string        `mapstructure:"AUTH_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	ESignProvider  string        `mapstructure:"ESIGN_PROVIDER"`
	StorageDir     string        `mapstructure:"STORAGE_DIR"`
	FormsDir       string        `mapstructure:"FORMS_DIR"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
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
	v.SetDefault("SESSION_TTL", "168h") // 7 days
	v.SetDefault("ESIGN_PROVIDER", "mock")
	v.SetDefault("STORAGE_DIR", "./data")
	v.SetDefault("FORMS_DIR", "./assets/forms")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("SESSION_TTL")
	v.BindEnv("ESIGN_PROVIDER")
	v.BindEnv("STORAGE_DIR")
	v.BindEnv("FORMS_DIR")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

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

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Session cookies are sent without the Secure flag.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The session signing
// secret and the e-sign provider selection are validated here, at startup,
// rather than at first use.
func (c *Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	if len(c.AuthSecret) < minAuthSecretLen {
		return fmt.Errorf("AUTH_SECRET must be at least %d bytes, got %d", minAuthSecretLen, len(c.AuthSecret))
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.ESignProvider {
	case "mock", "docusign":
	default:
		return fmt.Errorf("ESIGN_PROVIDER must be \"mock\" or \"docusign\", got %q", c.ESignProvider)
	}
	if c.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR is required")
	}
	return nil
}
