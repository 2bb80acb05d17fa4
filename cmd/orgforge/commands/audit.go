package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the local audit trail",
	}

	cmd.AddCommand(newAuditListCommand())

	return cmd
}

func newAuditListCommand() *cobra.Command {
	var (
		workspace string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		Example: `  # All recent runs
  orgforge audit list

  # Runs for one workspace
  orgforge audit list --workspace "Sales Team"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfigOnly()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var filter *string
			if workspace != "" {
				filter = &workspace
			}

			entries, err := store.ListAudit(ctx, filter, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(entries)
			}
			for _, e := range entries {
				failed := "-"
				if e.FailedStep != nil {
					failed = *e.FailedStep
				}
				fmt.Printf("%s  %-30s %-20s %3d resources  failed=%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"),
					e.WorkspaceName,
					e.Status,
					e.ResourceCount,
					failed,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "filter by workspace name")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")

	return cmd
}
