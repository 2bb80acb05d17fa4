package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orgforge/orgforge/pkg/orchestrator"
	"github.com/orgforge/orgforge/pkg/validate"
)

func newMemberCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage workspace memberships",
	}

	cmd.AddCommand(newMemberAddCommand())
	cmd.AddCommand(newMemberListCommand())
	cmd.AddCommand(newMemberRemoveCommand())

	return cmd
}

func newMemberAddCommand() *cobra.Command {
	var (
		workspaceID string
		role        string
	)

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add an account to a workspace",
		Long: `Resolve an account by email and add it to a workspace with the given
role.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := args[0]

			if !validate.Email(email) {
				return orchestrator.NewValidationError(fmt.Sprintf("invalid email address: %s", email), nil)
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			account, err := a.client.ResolveAccount(ctx, email)
			if err != nil {
				return err
			}

			ref, err := a.client.CreateResource(ctx, orchestrator.KindMembership, orchestrator.CreateAttrs{
				WorkspaceID: workspaceID,
				AccountID:   account.RemoteID,
				Role:        role,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(ref)
			}
			fmt.Printf("Added %s as %s (membership %s)\n", email, role, ref.RemoteID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace ID")
	cmd.Flags().StringVar(&role, "role", "member", "membership role (owner or member)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func newMemberListCommand() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memberships in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			refs, err := a.client.ListResources(ctx, orchestrator.KindMembership, workspaceID)
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

func newMemberRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <membership-id>",
		Short: "Remove a membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			if err := a.client.DeleteResource(ctx, orchestrator.KindMembership, args[0]); err != nil {
				return err
			}

			fmt.Printf("Removed membership %s\n", args[0])
			return nil
		},
	}
}
