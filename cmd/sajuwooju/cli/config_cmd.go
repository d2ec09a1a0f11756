package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sajuwooju/sajuwooju/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default sajuwooju.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Created %s\n", path)
			fmt.Println("Set auth.jwt_secret (or SAJUWOOJU_AUTH_JWT_SECRET) before running with server.env: production.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVar(&path, "path", "sajuwooju.yaml", "Where to write the file")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := viper.ConfigFileUsed()
			if configFile != "" {
				fmt.Printf("Config file: %s\n", configFile)
			} else {
				fmt.Println("Config file: (none found, using defaults and environment)")
			}
			fmt.Println()

			cfg := config.DefaultYAMLConfig()
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("decode config: %w", err)
			}
			if !reveal {
				cfg.Auth.JWTSecret = mask(cfg.Auth.JWTSecret)
				cfg.Directory.DSN = mask(cfg.Directory.DSN)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))

			if err := cfg.Validate(); err != nil {
				fmt.Printf("\nConfiguration problems:\n%v\n", err)
			}

			keys := viper.AllKeys()
			sort.Strings(keys)
			var fromEnv []string
			for _, k := range keys {
				if viper.InConfig(k) {
					continue
				}
				if _, ok := os.LookupEnv(envName(k)); ok {
					fromEnv = append(fromEnv, k)
				}
			}
			if len(fromEnv) > 0 {
				fmt.Printf("\nSet from environment: %v\n", fromEnv)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secrets and DSNs in clear text")
	return cmd
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
