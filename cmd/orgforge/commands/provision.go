package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orgforge/orgforge/pkg/orchestrator"
	"github.com/orgforge/orgforge/pkg/stores"
)

func newProvisionCommand() *cobra.Command {
	var (
		requestFile  string
		templateName string
		dryRun       bool
		graph        bool
		actor        string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a composite workspace",
		Long: `Provision a workspace with its channels and members as one atomic
operation.

This command:
  - Loads a provisioning request from a YAML file or a saved template
  - Validates the request and builds a dependency-ordered plan
  - Executes the plan with bounded concurrency and per-call retries
  - Rolls back every created resource if any step fails
  - Records the outcome in the local audit trail`,
		Example: `  # Provision from a request file
  orgforge provision --file request.yaml

  # Provision from a saved template
  orgforge provision --template sales-team

  # Show the plan without calling the API
  orgforge provision --file request.yaml --dry-run

  # Emit the plan as Graphviz DOT
  orgforge provision --file request.yaml --dry-run --graph`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if requestFile == "" && templateName == "" {
				return fmt.Errorf("either --file or --template is required")
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			req, err := loadRequest(ctx, a, requestFile, templateName)
			if err != nil {
				return err
			}

			if dryRun {
				return showPlan(a, *req, graph)
			}

			log.Info().
				Str("workspace", req.Workspace.Name).
				Int("channels", len(req.Channels)).
				Int("members", len(req.Members)).
				Msg("Provisioning workspace")

			start := time.Now()
			result, err := a.orch.Provision(ctx, *req)
			if err != nil {
				return err
			}

			if err := recordAudit(ctx, a, req, result, actor); err != nil {
				log.Warn().Err(err).Msg("Failed to record audit entry")
			}

			return reportResult(req.Workspace.Name, result, time.Since(start))
		},
	}

	cmd.Flags().StringVarP(&requestFile, "file", "f", "", "provisioning request file (YAML)")
	cmd.Flags().StringVarP(&templateName, "template", "t", "", "saved template name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "build and show the plan without executing it")
	cmd.Flags().BoolVar(&graph, "graph", false, "with --dry-run, emit the plan as Graphviz DOT")
	cmd.Flags().StringVar(&actor, "actor", "", "actor recorded in the audit trail")
	cmd.MarkFlagsMutuallyExclusive("file", "template")

	return cmd
}

// loadRequest reads the provisioning request from a YAML file or a stored
// template.
func loadRequest(ctx context.Context, a *app, requestFile, templateName string) (*orchestrator.Request, error) {
	var req orchestrator.Request

	if requestFile != "" {
		data, err := os.ReadFile(requestFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse request file: %w", err)
		}
		return &req, nil
	}

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	tpl, err := store.GetTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tpl.Request), &req); err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", templateName, err)
	}
	return &req, nil
}

// showPlan validates the request and prints the plan without executing it.
func showPlan(a *app, req orchestrator.Request, graph bool) error {
	if err := orchestrator.ValidateRequest(req); err != nil {
		return err
	}

	plan, err := a.orch.BuildPlan(req)
	if err != nil {
		return err
	}

	if graph {
		fmt.Print(plan.ToDOT())
		return nil
	}

	if jsonOutput {
		return printJSON(plan)
	}

	fmt.Printf("Plan for workspace %q: %d steps in %d levels\n\n", plan.WorkspaceName, len(plan.Steps), len(plan.Levels))
	for i, level := range plan.Levels {
		fmt.Printf("Level %d:\n", i)
		for _, id := range level {
			step := plan.StepByID(id)
			fmt.Printf("  %-40s (%s)\n", step.Name, step.Kind)
		}
	}
	return nil
}

// recordAudit appends one audit entry for the run.
func recordAudit(ctx context.Context, a *app, req *orchestrator.Request, result *orchestrator.Result, actor string) error {
	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entry := &stores.AuditEntry{
		RunID:         uuid.NewString(),
		Actor:         actor,
		WorkspaceName: req.Workspace.Name,
		Status:        string(result.Status),
		ResourceCount: len(result.CreatedResources),
		Timestamp:     time.Now().UTC(),
	}
	if result.FailedStep != "" {
		failed := result.FailedStep
		entry.FailedStep = &failed
	}
	if details, err := json.Marshal(result); err == nil {
		d := string(details)
		entry.Details = &d
	}

	return store.AppendAudit(ctx, entry)
}

// reportResult prints the orchestration outcome and returns an error for a
// failed run so the process exits non-zero.
func reportResult(workspace string, result *orchestrator.Result, elapsed time.Duration) error {
	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else if result.Success {
		fmt.Printf("Provisioned workspace %q: %d resources in %s\n", workspace, len(result.CreatedResources), elapsed.Round(time.Millisecond))
		for _, ref := range result.CreatedResources {
			fmt.Printf("  %-12s %-30s %s\n", ref.Kind, ref.Name, ref.RemoteID)
		}
	} else {
		fmt.Printf("Provisioning of workspace %q failed at step %q: %s\n", workspace, result.FailedStep, result.Err.Message)
		if len(result.Rollback) > 0 {
			fmt.Println("Rollback:")
			for _, o := range result.Rollback {
				status := "undone"
				if !o.OK {
					status = "FAILED: " + o.Err.Message
				}
				fmt.Printf("  %-40s %s\n", o.StepName, status)
			}
		}
		if !result.RollbackComplete() {
			fmt.Println("Warning: rollback incomplete, orphaned resources may remain")
		}
	}

	if !result.Success {
		return fmt.Errorf("provisioning failed: %s", result.Err.Message)
	}
	return nil
}
