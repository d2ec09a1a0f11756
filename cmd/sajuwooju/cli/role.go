package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Inspect the role table",
		Long:  "Roles are fixed at build time. Each admin holds exactly one role.",
	}
	cmd.AddCommand(newRoleListCmd())
	return cmd
}

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List roles and their permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			type row struct {
				Role        model.Role         `json:"role"`
				Permissions []model.Permission `json:"permissions"`
			}
			var rows []row
			for _, r := range rbac.KnownRoles() {
				rows = append(rows, row{Role: r, Permissions: rbac.PermissionsFor(r).List()})
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tPERMISSIONS")
			for _, r := range rows {
				perms := make([]string, len(r.Permissions))
				for i, p := range r.Permissions {
					perms[i] = string(p)
				}
				fmt.Fprintf(w, "%s\t%s\n", r.Role, strings.Join(perms, ", "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
