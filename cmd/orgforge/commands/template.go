package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orgforge/orgforge/pkg/orchestrator"
	"github.com/orgforge/orgforge/pkg/stores"
)

func newTemplateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage saved provisioning templates",
		Long: `Templates are named provisioning requests stored locally. Saving a
template under an existing name bumps its version.`,
	}

	cmd.AddCommand(newTemplateSaveCommand())
	cmd.AddCommand(newTemplateGetCommand())
	cmd.AddCommand(newTemplateListCommand())
	cmd.AddCommand(newTemplateDeleteCommand())

	return cmd
}

func newTemplateSaveCommand() *cobra.Command {
	var (
		requestFile string
		description string
	)

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a provisioning request as a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(requestFile)
			if err != nil {
				return fmt.Errorf("failed to read request file: %w", err)
			}

			var req orchestrator.Request
			if err := yaml.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse request file: %w", err)
			}
			if err := orchestrator.ValidateRequest(req); err != nil {
				return err
			}

			encoded, err := json.Marshal(req)
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}

			cfg, err := loadConfigOnly()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tpl := &stores.Template{
				Name:        args[0],
				Description: description,
				Request:     string(encoded),
			}
			if err := store.SaveTemplate(ctx, tpl); err != nil {
				return err
			}

			fmt.Printf("Saved template %q (version %d)\n", tpl.Name, tpl.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestFile, "file", "f", "", "provisioning request file (YAML)")
	cmd.Flags().StringVar(&description, "description", "", "template description")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newTemplateGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show a saved template",
		Args:  cobra.ExactArgs(1),
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

			tpl, err := store.GetTemplate(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(tpl)
			}
			fmt.Printf("Name:        %s\n", tpl.Name)
			fmt.Printf("Description: %s\n", tpl.Description)
			fmt.Printf("Version:     %d\n", tpl.Version)
			fmt.Printf("Updated:     %s\n", tpl.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Request:     %s\n", tpl.Request)
			return nil
		},
	}
}

func newTemplateListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved templates",
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

			templates, err := store.ListTemplates(ctx, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(templates)
			}
			for _, tpl := range templates {
				fmt.Printf("%-30s v%-4d %s\n", tpl.Name, tpl.Version, tpl.Description)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum templates to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")

	return cmd
}

func newTemplateDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved template",
		Args:  cobra.ExactArgs(1),
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

			if err := store.DeleteTemplate(ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted template %q\n", args[0])
			return nil
		},
	}
}
