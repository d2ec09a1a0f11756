package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MinProductionSecretLen is the minimum JWT signing secret length accepted
// when server.env is production.
const MinProductionSecretLen = 32

// YAMLConfig represents the top-level sajuwooju configuration file. The
// mapstructure tags let viper decode the same keys from env and flags.
type YAMLConfig struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Directory  DirectoryConfig  `yaml:"directory" mapstructure:"directory"`
	Revocation RevocationConfig `yaml:"revocation" mapstructure:"revocation"`
	Log        LoggingConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host        string   `yaml:"host" mapstructure:"host"`
	Port        int      `yaml:"port" mapstructure:"port"`
	Env         string   `yaml:"env" mapstructure:"env"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// IsProduction reports whether the server runs with production hardening
// (Secure cookies, HTTPS redirect, mandatory secret).
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// AuthConfig controls admin session settings.
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	CookieName         string `yaml:"cookie_name" mapstructure:"cookie_name"`
	CookiePath         string `yaml:"cookie_path" mapstructure:"cookie_path"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute" mapstructure:"login_rate_per_minute"`
}

// DirectoryConfig selects the database holding admin accounts.
type DirectoryConfig struct {
	Driver        string        `yaml:"driver" mapstructure:"driver"`
	DSN           string        `yaml:"dsn" mapstructure:"dsn"`
	LookupTimeout time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"`
}

// RevocationConfig selects the optional token denylist backend.
type RevocationConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"`
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	BadgerDir string `yaml:"badger_dir" mapstructure:"badger_dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
// Unset keys keep their defaults.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Env:         "development",
			CORSOrigins: []string{"*"},
		},
		Auth: AuthConfig{
			CookieName:         "admin_token",
			CookiePath:         "/api/admin",
			LoginRatePerMinute: 10,
		},
		Directory: DirectoryConfig{
			Driver:        "sqlite",
			LookupTimeout: 3 * time.Second,
		},
		Revocation: RevocationConfig{
			Backend: "none",
		},
		Log: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the combinations the server refuses to start with.
func (c *YAMLConfig) Validate() error {
	var errs []error

	if c.Server.Env != "development" && c.Server.Env != "production" {
		errs = append(errs, fmt.Errorf("server.env must be development or production, got %q", c.Server.Env))
	}
	if c.Server.IsProduction() && len(c.Auth.JWTSecret) < MinProductionSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes in production", MinProductionSecretLen))
	}
	if c.Auth.CookieName == "" {
		errs = append(errs, errors.New("auth.cookie_name must not be empty"))
	}
	if c.Auth.LoginRatePerMinute <= 0 {
		errs = append(errs, errors.New("auth.login_rate_per_minute must be positive"))
	}

	switch c.Directory.Driver {
	case "sqlite":
	case "postgres", "mysql", "mssql":
		if c.Directory.DSN == "" {
			errs = append(errs, fmt.Errorf("directory.dsn is required for driver %s", c.Directory.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("directory.driver %q is not supported", c.Directory.Driver))
	}
	if c.Directory.LookupTimeout <= 0 {
		errs = append(errs, errors.New("directory.lookup_timeout must be positive"))
	}

	switch c.Revocation.Backend {
	case "none", "memory":
	case "redis":
		if c.Revocation.RedisAddr == "" {
			errs = append(errs, errors.New("revocation.redis_addr is required for the redis backend"))
		}
	case "badger":
		if c.Revocation.BadgerDir == "" {
			errs = append(errs, errors.New("revocation.badger_dir is required for the badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("revocation.backend %q is not supported", c.Revocation.Backend))
	}

	return errors.Join(errs...)
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
