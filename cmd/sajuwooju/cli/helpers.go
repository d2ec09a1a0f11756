package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/connector"
	"github.com/sajuwooju/sajuwooju/internal/connector/mssql"
	"github.com/sajuwooju/sajuwooju/internal/connector/mysql"
	"github.com/sajuwooju/sajuwooju/internal/connector/postgres"
	"github.com/sajuwooju/sajuwooju/internal/connector/sqlite"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// SAJUWOOJU_DATA_DIR env var, or ~/.sajuwooju as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("SAJUWOOJU_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sajuwooju")
}

// setDefaults registers every config key with viper so that env-only
// values are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := config.DefaultYAMLConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.env", d.Server.Env)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.cookie_name", d.Auth.CookieName)
	v.SetDefault("auth.cookie_path", d.Auth.CookiePath)
	v.SetDefault("auth.login_rate_per_minute", d.Auth.LoginRatePerMinute)
	v.SetDefault("directory.driver", d.Directory.Driver)
	v.SetDefault("directory.dsn", d.Directory.DSN)
	v.SetDefault("directory.lookup_timeout", d.Directory.LookupTimeout)
	v.SetDefault("revocation.backend", d.Revocation.Backend)
	v.SetDefault("revocation.redis_addr", d.Revocation.RedisAddr)
	v.SetDefault("revocation.badger_dir", d.Revocation.BadgerDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig decodes the effective configuration (defaults, file, env,
// flags) and validates it.
func loadConfig() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newRegistry creates a connector registry with every supported directory
// driver registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("mssql", func() connector.Connector { return mssql.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	return registry
}

// openDirectory opens the admin directory store. SQLite without a DSN
// lives in the data directory.
func openDirectory(cfg config.DirectoryConfig) (*config.Store, error) {
	if cfg.Driver == "sqlite" && cfg.DSN == "" {
		return config.NewStore(resolveDataDir())
	}
	conn, err := newRegistry().Open(connector.ConnectionConfig{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	if err != nil {
		return nil, err
	}
	store, err := config.NewStoreFromConnector(conn)
	if err != nil {
		conn.Disconnect()
		return nil, err
	}
	return store, nil
}

// openDirectoryFromConfig loads the configuration and opens the directory
// for one-shot CLI commands.
func openDirectoryFromConfig() (*config.Store, error) {
	cfg := config.DefaultYAMLConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return openDirectory(cfg.Directory)
}

// promptPassword reads a password twice from the terminal.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}

// cmdCtx returns a background context for CLI operations.
func cmdCtx() context.Context {
	return context.Background()
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "sajuwooju.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "sajuwooju.log")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

// envName returns the environment variable viper reads for key.
func envName(key string) string {
	return "SAJUWOOJU_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
