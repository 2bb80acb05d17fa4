package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/orgforge/orgforge/pkg/orchestrator"
)

func newWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect and manage workspaces",
	}

	cmd.AddCommand(newWorkspaceGetCommand())
	cmd.AddCommand(newWorkspaceListCommand())
	cmd.AddCommand(newWorkspaceArchiveCommand())

	return cmd
}

func newWorkspaceGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <workspace-id>",
		Short: "Fetch one workspace by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			ref, err := a.client.GetResource(ctx, orchestrator.KindWorkspace, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(ref)
			}
			fmt.Printf("%-12s %-30s %s\n", ref.Kind, ref.Name, ref.RemoteID)
			return nil
		},
	}
}

func newWorkspaceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			refs, err := a.client.ListResources(ctx, orchestrator.KindWorkspace, "")
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(refs)
			}
			for _, ref := range refs {
				fmt.Printf("%-30s %s\n", ref.Name, ref.RemoteID)
			}
			return nil
		},
	}
}

func newWorkspaceArchiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <workspace-id>",
		Short: "Archive a workspace",
		Long: `Archive a workspace. The remote API soft-deletes workspaces; the
identifier becomes unreachable for subsequent provisioning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			if err := a.client.DeleteResource(ctx, orchestrator.KindWorkspace, args[0]); err != nil {
				return err
			}

			log.Info().Str("workspace_id", args[0]).Msg("Workspace archived")
			fmt.Printf("Archived workspace %s\n", args[0])
			return nil
		},
	}
}
