package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/orgforge/orgforge/pkg/telemetry"
)

// DefaultMaxParallel bounds concurrent sibling steps within one plan
// level, keeping the orchestration under the remote API's rate budget.
const DefaultMaxParallel = 4

// StepCancelled is recorded as the failed step when cancellation is
// observed between steps, before any step itself failed. Audit entries
// carry it so pre-step cancellation stays distinguishable from an empty
// field.
const StepCancelled = "cancelled"

// Orchestrator executes provisioning plans against a remote
// administrative API with compensating rollback. Each Provision call is a
// fully independent orchestration; no state is shared across invocations.
type Orchestrator struct {
	client      ResourceClient
	retry       *retryPolicy
	maxParallel int
	logger      zerolog.Logger
	tracer      trace.Tracer
	metrics     *telemetry.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMaxParallel bounds concurrent sibling steps per level.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithRetryConfig tunes the per-call retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(o *Orchestrator) { o.retry = newRetryPolicy(cfg) }
}

// WithMetrics attaches a metrics collector for orchestration and
// compensation observations.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the OpenTelemetry tracer for orchestration spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// New creates an orchestrator around the given remote client. The client
// is injected explicitly; there is no process-wide singleton.
func New(client ResourceClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		retry:       newRetryPolicy(DefaultRetryConfig()),
		maxParallel: DefaultMaxParallel,
		logger:      zerolog.Nop(),
		tracer:      noop.NewTracerProvider().Tracer("orchestrator"),
		metrics:     telemetry.NewMetrics(telemetry.MetricsConfig{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Provision expands req into a plan and executes it. A validation failure
// (bad input, malformed plan) returns a non-nil error with no Result: no
// remote call was made and there is nothing to roll back. Every other
// failure is absorbed into the returned Result.
func (o *Orchestrator) Provision(ctx context.Context, req Request) (*Result, error) {
	plan, err := o.BuildPlan(req)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, plan)
}

// Execute runs a previously built plan to completion. Remote failures
// never escape as errors: they trigger rollback and are reported inside
// the Result. Only a malformed plan yields a non-nil error.
func (o *Orchestrator) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	if plan == nil || len(plan.Steps) == 0 || len(plan.Levels) == 0 {
		return nil, NewValidationError("plan is empty or was not built", nil).
			WithCode(ErrCodeMalformedPlan)
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.execute",
		trace.WithAttributes(
			attribute.String("plan.id", plan.ID),
			attribute.String("plan.workspace", plan.WorkspaceName),
			attribute.Int("plan.steps", len(plan.Steps)),
		))
	defer span.End()

	start := time.Now()
	status := StatusPlanning
	if !status.canTransition(StatusExecuting) {
		return nil, NewInternalError("illegal state transition", nil)
	}
	status = StatusExecuting
	o.metrics.ObserveOrchestrationStarted()

	registry := newCompensationRegistry()
	exec := &execution{orch: o, plan: plan, registry: registry}

	failedStep, failure := exec.run(ctx)

	if failure == nil {
		// Success is final: the registry is discarded and no compensation
		// ever executes for this orchestration.
		status = StatusSucceeded
		created := registry.resources()
		registry.drain()

		o.logger.Info().
			Str("plan_id", plan.ID).
			Str("workspace", plan.WorkspaceName).
			Int("resources", len(created)).
			Dur("duration", time.Since(start)).
			Msg("provisioning succeeded")

		o.metrics.ObserveOrchestrationCompleted(string(status), time.Since(start).Seconds())
		return &Result{
			Success:          true,
			Status:           status,
			CreatedResources: created,
			Duration:         time.Since(start),
		}, nil
	}

	status = StatusRollingBack
	span.SetStatus(codes.Error, failure.Error())

	o.logger.Warn().
		Str("plan_id", plan.ID).
		Str("failed_step", failedStep).
		Err(failure).
		Int("compensations", registry.len()).
		Msg("provisioning failed, rolling back")

	outcomes := o.rollback(ctx, registry.drain())

	if allCompensated(outcomes) {
		status = StatusRolledBack
	} else {
		status = StatusRolledBackPartial
	}

	o.metrics.ObserveOrchestrationCompleted(string(status), time.Since(start).Seconds())
	return &Result{
		Success:    false,
		Status:     status,
		FailedStep: failedStep,
		Err:        asProvisionError(failure),
		Rollback:   outcomes,
		Duration:   time.Since(start),
	}, nil
}

// execution tracks the mutable state of one plan run.
type execution struct {
	orch     *Orchestrator
	plan     *Plan
	registry *compensationRegistry

	mu       sync.Mutex
	failed   bool
	failStep string
	failErr  error
}

// run executes the plan level by level. Within a level, sibling steps run
// on a bounded worker pool; once any step fails, queued siblings are no
// longer launched but in-flight ones are awaited, so the registry reflects
// every resource that actually exists remotely. Cancellation is observed
// at level boundaries; remote calls already in flight complete or fail
// naturally and are never aborted mid-call.
func (e *execution) run(ctx context.Context) (string, error) {
	for _, levelIDs := range e.plan.Levels {
		select {
		case <-ctx.Done():
			e.recordFailure(StepCancelled, NewUnavailableError("orchestration cancelled", ctx.Err()).
				WithCode(ErrCodeCancelled))
		default:
		}
		if e.hasFailed() {
			break
		}

		e.runLevel(ctx, levelIDs)
		if e.hasFailed() {
			break
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failStep, e.failErr
}

func (e *execution) runLevel(ctx context.Context, ids []string) {
	workers := e.orch.maxParallel
	if len(ids) < workers {
		workers = len(ids)
	}

	work := make(chan *Step, len(ids))
	for _, id := range ids {
		work <- e.plan.StepByID(id)
	}
	close(work)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for step := range work {
				if e.hasFailed() {
					// Stop launching; siblings already running finish out.
					continue
				}
				e.runStep(ctx, step)
			}
		}()
	}
	wg.Wait()
}

// runStep executes one step's forward action. Retries happen inside the
// retry policy beneath the step; a step itself never executes twice.
func (e *execution) runStep(ctx context.Context, step *Step) {
	ctx, span := e.orch.tracer.Start(ctx, "orchestrator.step",
		trace.WithAttributes(
			attribute.String("step.name", step.Name),
			attribute.String("step.kind", string(step.Kind)),
		))
	defer span.End()

	logger := e.orch.logger.With().Str("step", step.Name).Logger()
	logger.Debug().Msg("executing step")

	ref, err := step.Forward(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("step failed")
		e.recordFailure(step.Name, err)
		return
	}

	// Register the compensation atomically before any dependent step can
	// begin. Resolution steps create nothing and register nothing.
	if step.Compensate != nil {
		e.registry.push(CompensationEntry{Step: step, Resource: ref})
	}

	logger.Debug().
		Str("remote_id", ref.RemoteID).
		Str("kind", string(ref.Kind)).
		Msg("step completed")
}

func (e *execution) hasFailed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}

// recordFailure keeps the first failure observed; later sibling failures
// are logged by their steps but do not replace the triggering error.
func (e *execution) recordFailure(step string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed {
		return
	}
	e.failed = true
	e.failStep = step
	e.failErr = err
}

// rollback attempts every registered compensation exactly once, in strict
// reverse push order. A failed compensation is recorded and the remaining
// ones still run: partial rollback is strictly worse than attempted-full
// rollback. Runs on a context detached from the orchestration's
// cancellation so a cancelled run still cleans up.
func (o *Orchestrator) rollback(ctx context.Context, entries []CompensationEntry) []CompensationOutcome {
	rctx := context.WithoutCancel(ctx)
	outcomes := make([]CompensationOutcome, 0, len(entries))

	for _, entry := range entries {
		outcomes = append(outcomes, o.RollbackOne(rctx, entry))
	}
	return outcomes
}

// RollbackOne executes a single compensation under the retry policy.
// Exposed for partial-failure tests alongside ExecuteStep.
func (o *Orchestrator) RollbackOne(ctx context.Context, entry CompensationEntry) CompensationOutcome {
	outcome := CompensationOutcome{
		StepName: entry.Step.Name,
		Resource: entry.Resource,
	}

	if entry.Step.Compensate == nil {
		outcome.OK = true
		return outcome
	}

	err := o.retry.do(ctx, func(ctx context.Context) error {
		return entry.Step.Compensate(ctx, entry.Resource)
	})
	o.metrics.ObserveCompensation(err == nil)
	if err != nil {
		cerr := NewCompensationFailedError("compensation failed", err).
			WithStep(entry.Step.Name).
			WithResource(entry.Resource.RemoteID)
		o.logger.Error().Err(cerr).Str("step", entry.Step.Name).Msg("compensation failed")
		outcome.Err = cerr
		return outcome
	}

	o.logger.Info().
		Str("step", entry.Step.Name).
		Str("remote_id", entry.Resource.RemoteID).
		Msg("compensated")
	outcome.OK = true
	return outcome
}

// ExecuteStep runs a single step's forward action outside a full plan.
// Used by tests to exercise partial-failure paths.
func (o *Orchestrator) ExecuteStep(ctx context.Context, step *Step) (ResourceRef, error) {
	if step == nil || step.Forward == nil {
		return ResourceRef{}, NewValidationError("step has no forward action", nil).
			WithCode(ErrCodeMalformedPlan)
	}
	return step.Forward(ctx)
}

func allCompensated(outcomes []CompensationOutcome) bool {
	for _, o := range outcomes {
		if !o.OK {
			return false
		}
	}
	return true
}

func asProvisionError(err error) *ProvisionError {
	if err == nil {
		return nil
	}
	var perr *ProvisionError
	if errors.As(err, &perr) {
		return perr
	}
	return NewInternalError(err.Error(), err)
}
