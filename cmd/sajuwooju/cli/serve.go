package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/revocation"
	"github.com/sajuwooju/sajuwooju/internal/server"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

const banner = `
 ___       _        __      __              _
/ __| __ _(_)_  _   \ \    / /__  ___ _  _ (_)_  _
\__ \/ _' | | || |   \ \/\/ / _ \/ _ \ || || | || |
|___/\__,_/ |\_,_|    \_/\_/\___/\___/\_,_|/ |\_,_|
        |__/                             |__/
`

func newServeCmd() *cobra.Command {
	var (
		port     int
		host     string
		env      string
		detached bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin API server",
		Long:  "Start the HTTP server for the SajuWooju admin API. Use --daemon to run it in the background.",
		Example: `  sajuwooju serve
  SAJUWOOJU_AUTH_JWT_SECRET=... sajuwooju serve --env production
  sajuwooju serve --daemon && sajuwooju status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if detached {
				return startDaemon()
			}
			return runServe()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&env, "env", "development", "Runtime environment: development or production")
	cmd.Flags().BoolVarP(&detached, "daemon", "d", false, "Run the server in the background")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.env", cmd.Flags().Lookup("env"))

	return cmd
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	fmt.Print(banner)
	fmt.Println()

	// 1. Signing secret
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = ephemeralSecret()
		if err != nil {
			return err
		}
		logger.Warn("auth.jwt_secret not set; using a random secret, tokens will not survive a restart")
	}
	codec, err := service.NewTokenCodec([]byte(secret))
	if err != nil {
		return fmt.Errorf("init token codec: %w", err)
	}

	// 2. Admin directory
	store, err := openDirectory(cfg.Directory)
	if err != nil {
		return fmt.Errorf("open admin directory: %w", err)
	}
	defer store.Close()
	logger.Info("admin directory ready", "driver", store.Driver())

	// 3. Optional revocation store
	denylist, err := revocation.Open(cmdCtx(), revocation.Config{
		Backend:   cfg.Revocation.Backend,
		RedisAddr: cfg.Revocation.RedisAddr,
		BadgerDir: cfg.Revocation.BadgerDir,
	})
	if err != nil {
		return fmt.Errorf("open revocation store: %w", err)
	}
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithLookupTimeout(cfg.Directory.LookupTimeout),
	}
	if denylist != nil {
		defer denylist.Close()
		opts = append(opts, service.WithDenylist(denylist))
		logger.Info("token revocation enabled", "backend", cfg.Revocation.Backend)
	}
	authSvc := service.NewAuthService(store, codec, opts...)

	// 4. First-run hint
	hasAdmin, err := store.HasAnyAdmin(cmdCtx())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: sajuwooju admin create --role super_admin")
	}

	// 5. PID file
	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "error", err)
	}
	defer removePID()

	// 6. HTTP server
	srvCfg := server.ConfigFromYAML(cfg)
	srv := server.New(srvCfg, store, authSvc, logger)

	fmt.Printf("→ SajuWooju admin %s (%s)\n", versionString(), cfg.Server.Env)
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Admin API:  http://%s:%d/api/admin\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// startDaemon re-executes the binary without --daemon in a new session,
// with output appended to the log file.
func startDaemon() error {
	if pid, err := readPID(); err == nil && processAlive(pid) {
		return fmt.Errorf("server already running (PID %d)", pid)
	}
	if _, err := loadConfig(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := os.MkdirAll(resolveDataDir(), 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	var args []string
	for _, a := range os.Args[1:] {
		if a == "--daemon" || a == "-d" || a == "--daemon=true" {
			continue
		}
		args = append(args, a)
	}

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	detachProcess(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := writePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}

	fmt.Printf("Server started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	return child.Process.Release()
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// loadServeConfig is used by status to find the listen address.
func loadServeConfig() *config.YAMLConfig {
	cfg := config.DefaultYAMLConfig()
	viper.Unmarshal(cfg)
	return cfg
}
