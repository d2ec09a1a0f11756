package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sajuwooju/sajuwooju/internal/config"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"directory"},
		Short:   "Check the admin directory database",
		Long: `Check connectivity to the admin directory database and apply its schema.

Supported drivers: sqlite (default, stored in the data directory), postgres, mysql, mssql.
Select one with directory.driver and directory.dsn in sajuwooju.yaml or
SAJUWOOJU_DIRECTORY_DRIVER / SAJUWOOJU_DIRECTORY_DSN.`,
	}

	cmd.AddCommand(newDBPingCmd())
	cmd.AddCommand(newDBMigrateCmd())

	return cmd
}

func newDBPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the directory connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(func(store *config.Store) error {
				ctx, cancel := context.WithTimeout(cmdCtx(), 5*time.Second)
				defer cancel()

				start := time.Now()
				if err := store.Ping(ctx); err != nil {
					return fmt.Errorf("ping %s directory: %w", store.Driver(), err)
				}
				fmt.Printf("Directory (%s) is reachable (%s)\n", store.Driver(), time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the directory tables",
		Long:  "Apply the admin directory schema. Opening the directory always migrates; this command does only that and reports the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(func(store *config.Store) error {
				hasAdmin, err := store.HasAnyAdmin(cmdCtx())
				if err != nil {
					return err
				}
				fmt.Printf("Directory (%s) schema is up to date\n", store.Driver())
				if !hasAdmin {
					fmt.Println("No admin accounts yet. Run 'sajuwooju admin create --role super_admin'.")
				}
				return nil
			})
		},
	}
}

func withDirectory(fn func(*config.Store) error) error {
	store, err := openDirectoryFromConfig()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
