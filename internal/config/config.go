package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	// BSN encryption keys. Either set directly via environment, or fetched
	// from Vault when VAULT_ADDR is configured.
	BSNEncryptionKey string `mapstructure:"BSN_ENCRYPTION_KEY"`
	BSNKeyVersion    int    `mapstructure:"BSN_KEY_VERSION"`
	BSNHashKey       string `mapstructure:"BSN_HASH_KEY"`
	BSNPreviousKeys  string `mapstructure:"BSN_PREVIOUS_KEYS"`

	VaultAddr    string `mapstructure:"VAULT_ADDR"`
	VaultToken   string `mapstructure:"VAULT_TOKEN"`
	VaultKeyPath string `mapstructure:"VAULT_KEY_PATH"`

	// DevPracticeID pins the practice used by the development auth
	// middleware. A random one is generated when unset.
	DevPracticeID string `mapstructure:"DEV_PRACTICE_ID"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	TLSEnabled     bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`
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
	v.SetDefault("BSN_KEY_VERSION", 1)
	v.SetDefault("VAULT_KEY_PATH", "secret/data/praktijk/bsn")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("BSN_ENCRYPTION_KEY")
	v.BindEnv("BSN_KEY_VERSION")
	v.BindEnv("BSN_HASH_KEY")
	v.BindEnv("BSN_PREVIOUS_KEYS")
	v.BindEnv("VAULT_ADDR")
	v.BindEnv("VAULT_TOKEN")
	v.BindEnv("VAULT_KEY_PATH")
	v.BindEnv("DEV_PRACTICE_ID")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("TLS_ENABLED")
	v.BindEnv("TLS_CERT_FILE")
	v.BindEnv("TLS_KEY_FILE")

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
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active: all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
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

// UseVaultKeys reports whether BSN key material should be fetched from Vault
// instead of the environment.
func (c *Config) UseVaultKeys() bool {
	return c.VaultAddr != ""
}

// Validate checks that the configuration is safe to run. Outside development
// either AUTH_ISSUER or AUTH_SIGNING_KEY must be set so real JWT validation
// is enforced, and BSN key material must be present and well-formed.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.AuthIssuer != "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ISSUER is set without AUTH_SIGNING_KEY")
	}

	// BSN key validation. Keys fetched from Vault are validated on load.
	if c.IsProduction() && !c.UseVaultKeys() {
		if c.BSNEncryptionKey == "" {
			return fmt.Errorf("BSN_ENCRYPTION_KEY is required in production (or configure VAULT_ADDR)")
		}
		if c.BSNHashKey == "" {
			return fmt.Errorf("BSN_HASH_KEY is required in production (or configure VAULT_ADDR)")
		}
	}
	if err := validateHexKey("BSN_ENCRYPTION_KEY", c.BSNEncryptionKey); err != nil {
		return err
	}
	if err := validateHexKey("BSN_HASH_KEY", c.BSNHashKey); err != nil {
		return err
	}
	if c.BSNKeyVersion < 1 {
		return fmt.Errorf("BSN_KEY_VERSION must be >= 1, got %d", c.BSNKeyVersion)
	}
	if c.UseVaultKeys() && c.VaultToken == "" {
		return fmt.Errorf("VAULT_TOKEN is required when VAULT_ADDR is set")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}

func validateHexKey(name, value string) error {
	if value == "" {
		return nil
	}
	keyBytes, err := hex.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	if len(keyBytes) != 32 {
		return fmt.Errorf("%s must be 32 bytes (64 hex chars), got %d bytes", name, len(keyBytes))
	}
	return nil
}
