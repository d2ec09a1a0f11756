package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  "Create, list, activate, deactivate and change the role or password of back-office admin accounts.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminActiveCmd("activate", true))
	cmd.AddCommand(newAdminActiveCmd("deactivate", false))
	cmd.AddCommand(newAdminSetRoleCmd())
	cmd.AddCommand(newAdminPasswdCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Example: `  sajuwooju admin create --email root@sajuwooju.kr --role super_admin
  sajuwooju admin create --email cs@sajuwooju.kr --name "CS Team" --role viewer --password secret123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, password, name, model.Role(role))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleViewer), "Role: super_admin, admin or viewer")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(email, password, name string, role model.Role) error {
	email = model.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (known: super_admin, admin, viewer)", role)
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	if password == "" {
		pw, err := promptPassword()
		if err != nil {
			return err
		}
		password = pw
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}

	store, err := openDirectoryFromConfig()
	if err != nil {
		return err
	}
	defer store.Close()

	admin := &model.Admin{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		IsActive:     true,
	}
	if err := store.CreateAdmin(cmdCtx(), admin); err != nil {
		if errors.Is(err, config.ErrAlreadyExists) {
			return fmt.Errorf("an admin with email %q already exists", email)
		}
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Printf("Created admin %s (%s) with role %s\n", admin.Email, admin.ID, admin.Role)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	store, err := openDirectoryFromConfig()
	if err != nil {
		return err
	}
	defer store.Close()

	admins, err := store.ListAdmins(cmdCtx())
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Println("No admin accounts. Use 'sajuwooju admin create' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tACTIVE\tLAST LOGIN")
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		last := "-"
		if a.LastLoginAt != nil {
			last = a.LastLoginAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Email, a.Name, a.Role, active, last)
	}
	return w.Flush()
}

// ---------- admin activate / deactivate ----------

func newAdminActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " an admin account",
		Long: "Change whether an admin may sign in. The change applies to already issued " +
			"credentials on their next request.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAdmin(args[0], func(store *config.Store, a *model.Admin) error {
				return store.SetAdminActive(cmdCtx(), a.ID, active)
			}, use+"d")
		},
	}
}

// ---------- admin set-role ----------

func newAdminSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set-role <email> <role>",
		Short:   "Change an admin's role",
		Example: `  sajuwooju admin set-role cs@sajuwooju.kr admin`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q (known: super_admin, admin, viewer)", role)
			}
			return updateAdmin(args[0], func(store *config.Store, a *model.Admin) error {
				return store.SetAdminRole(cmdCtx(), a.ID, role)
			}, "set to role "+string(role))
		},
	}
}

// ---------- admin passwd ----------

func newAdminPasswdCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <email>",
		Short: "Reset an admin's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				password = pw
			}
			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			return updateAdmin(args[0], func(store *config.Store, a *model.Admin) error {
				return store.SetAdminPassword(cmdCtx(), a.ID, hash)
			}, "password updated")
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")
	return cmd
}

func updateAdmin(email string, apply func(*config.Store, *model.Admin) error, done string) error {
	store, err := openDirectoryFromConfig()
	if err != nil {
		return err
	}
	defer store.Close()

	admin, err := store.GetAdminByEmail(cmdCtx(), email)
	if errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("no admin with email %q", email)
	}
	if err != nil {
		return err
	}
	if err := apply(store, admin); err != nil {
		return err
	}
	fmt.Printf("Admin %s %s\n", admin.Email, done)
	return nil
}
