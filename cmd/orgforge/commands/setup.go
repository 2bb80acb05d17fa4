package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/orgforge/orgforge/pkg/auth"
	"github.com/orgforge/orgforge/pkg/config"
	"github.com/orgforge/orgforge/pkg/orchestrator"
	"github.com/orgforge/orgforge/pkg/remote"
	"github.com/orgforge/orgforge/pkg/stores"
	"github.com/orgforge/orgforge/pkg/telemetry"
)

// app bundles the wired components every command needs.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	client  *remote.Client
	orch    *orchestrator.Orchestrator
}

// newApp loads configuration and wires the remote client and orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	metrics := telemetry.NewMetrics(cfg.Telemetry.Metrics)

	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing, cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to configure tracing: %w", err)
	}

	var tokens remote.TokenSource
	switch {
	case cfg.Auth.TokenURL != "":
		tokens = auth.NewClientCredentialsSource(cfg.Auth, telemetry.ComponentLogger(logger, "auth"))
	case os.Getenv("ORGFORGE_API_TOKEN") != "":
		tokens = auth.StaticTokenSource(os.Getenv("ORGFORGE_API_TOKEN"))
	}

	clientOpts := []remote.Option{
		remote.WithMetrics(metrics),
		remote.WithLogger(telemetry.ComponentLogger(logger, "remote")),
	}
	if tokens != nil {
		clientOpts = append(clientOpts, remote.WithTokenSource(tokens))
	}
	client := remote.NewClient(cfg.API, clientOpts...)

	orch := orchestrator.New(client,
		orchestrator.WithLogger(telemetry.ComponentLogger(logger, "orchestrator")),
		orchestrator.WithMaxParallel(cfg.Orch.MaxParallel),
		orchestrator.WithRetryConfig(cfg.Orch.Retry),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithTracer(tracer.Tracer()),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		client:  client,
		orch:    orch,
	}, nil
}

// shutdown flushes telemetry.
func (a *app) shutdown(ctx context.Context) {
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to shut down tracer")
	}
}

// openStore opens and migrates the local database.
func openStore(ctx context.Context, cfg *config.Config) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// loadConfigOnly is for commands that touch only local state.
func loadConfigOnly() (*config.Config, error) {
	return config.Load(configPath)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
