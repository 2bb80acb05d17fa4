package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orgforge/orgforge/pkg/orchestrator"
)

func newChannelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage channels within a workspace",
	}

	cmd.AddCommand(newChannelCreateCommand())
	cmd.AddCommand(newChannelListCommand())
	cmd.AddCommand(newChannelDeleteCommand())

	return cmd
}

func newChannelCreateCommand() *cobra.Command {
	var (
		workspaceID string
		description string
		channelType string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a channel in a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			ref, err := a.client.CreateResource(ctx, orchestrator.KindChannel, orchestrator.CreateAttrs{
				WorkspaceID: workspaceID,
				Name:        args[0],
				Description: description,
				ChannelType: channelType,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(ref)
			}
			fmt.Printf("Created channel %q (%s)\n", ref.Name, ref.RemoteID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace ID")
	cmd.Flags().StringVar(&description, "description", "", "channel description")
	cmd.Flags().StringVar(&channelType, "type", "standard", "channel type (standard or private)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func newChannelListCommand() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List channels in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			refs, err := a.client.ListResources(ctx, orchestrator.KindChannel, workspaceID)
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

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace ID")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func newChannelDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <channel-id>",
		Short: "Delete a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			if err := a.client.DeleteResource(ctx, orchestrator.KindChannel, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted channel %s\n", args[0])
			return nil
		},
	}
}
