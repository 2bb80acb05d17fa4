package orchestrator

import (
	"context"
	"time"
)

// ResourceKind enumerates the remote resource types the orchestrator manages.
type ResourceKind string

const (
	// KindAccount is a directory account resolved from an identifier.
	KindAccount ResourceKind = "account"

	// KindWorkspace is the top-level collaboration resource.
	KindWorkspace ResourceKind = "workspace"

	// KindChannel is a sub-resource scoped to a workspace.
	KindChannel ResourceKind = "channel"

	// KindMembership associates an account with a workspace and a role.
	KindMembership ResourceKind = "membership"
)

// Validate checks if the resource kind is valid.
func (k ResourceKind) Validate() error {
	switch k {
	case KindAccount, KindWorkspace, KindChannel, KindMembership:
		return nil
	default:
		return NewValidationError("invalid resource kind: "+string(k), nil)
	}
}

// ResourceRef identifies a remote object created or resolved during an
// orchestration. It is owned exclusively by the orchestration that created
// it until the orchestration concludes.
type ResourceRef struct {
	// Kind is the resource type.
	Kind ResourceKind `json:"kind"`

	// RemoteID is the opaque identifier assigned by the remote API.
	RemoteID string `json:"remote_id"`

	// Name is the human-readable name, when the resource has one.
	Name string `json:"name,omitempty"`

	// CreatedAt is when the resource was created or resolved.
	CreatedAt time.Time `json:"created_at"`
}

// ForwardFunc performs a step's forward action and returns the resource it
// created or resolved.
type ForwardFunc func(ctx context.Context) (ResourceRef, error)

// CompensateFunc semantically undoes a previously successful forward action.
type CompensateFunc func(ctx context.Context, ref ResourceRef) error

// Step is a single unit of a provisioning plan. Immutable once the plan is
// built.
type Step struct {
	// ID is the unique step identifier within the plan.
	ID string `json:"id"`

	// Name is the human-readable step name, e.g. "create-channel-Leads".
	Name string `json:"name"`

	// Kind is the resource kind this step provisions.
	Kind ResourceKind `json:"kind"`

	// DependsOn lists step IDs that must succeed before this step runs.
	DependsOn []string `json:"depends_on,omitempty"`

	// Level is the topological depth assigned by the DAG builder.
	Level int `json:"level"`

	// Forward performs the remote call for this step.
	Forward ForwardFunc `json:"-"`

	// Compensate undoes the forward action during rollback. Nil for steps
	// that create nothing remotely (e.g. account resolution).
	Compensate CompensateFunc `json:"-"`
}

// Plan is an ordered set of steps satisfying a topological order over
// DependsOn. Built once, executed once, not reused.
type Plan struct {
	// ID is the unique plan identifier.
	ID string `json:"id"`

	// WorkspaceName is the display name of the workspace being provisioned.
	WorkspaceName string `json:"workspace_name"`

	// Steps holds all plan steps in topological order.
	Steps []Step `json:"steps"`

	// Levels groups step IDs by topological depth; steps within one level
	// have no mutual dependencies and may run concurrently.
	Levels [][]string `json:"levels"`

	// CreatedAt is when the plan was built.
	CreatedAt time.Time `json:"created_at"`
}

// StepByID returns the step with the given ID, or nil.
func (p *Plan) StepByID(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// CompensationEntry records the undo operation for one successful step.
type CompensationEntry struct {
	// Step is the step whose forward action succeeded.
	Step *Step

	// Resource is the ResourceRef the forward action produced.
	Resource ResourceRef
}

// CompensationOutcome reports the result of one attempted compensation.
type CompensationOutcome struct {
	// StepName is the name of the compensated step.
	StepName string `json:"step_name"`

	// Resource is the resource that was (or failed to be) undone.
	Resource ResourceRef `json:"resource"`

	// OK reports whether the compensation succeeded.
	OK bool `json:"ok"`

	// Err is the classified failure when OK is false.
	Err *ProvisionError `json:"error,omitempty"`
}

// Result is the consolidated outcome of one orchestration. The orchestrator
// never lets a remote-call error escape its boundary; everything a caller
// needs to branch on is here.
type Result struct {
	// Success reports whether every step completed.
	Success bool `json:"success"`

	// Status is the terminal orchestration state.
	Status Status `json:"status"`

	// CreatedResources lists, in completion order, the resources that exist
	// remotely when Success is true. Empty after a rollback.
	CreatedResources []ResourceRef `json:"created_resources"`

	// FailedStep names the step whose failure triggered rollback.
	FailedStep string `json:"failed_step,omitempty"`

	// Err is the classified error that triggered the failure.
	Err *ProvisionError `json:"error,omitempty"`

	// Rollback lists per-compensation outcomes in execution (reverse push)
	// order. Nil on success.
	Rollback []CompensationOutcome `json:"rollback,omitempty"`

	// Duration is the total orchestration wall time.
	Duration time.Duration `json:"duration"`
}

// RollbackComplete reports whether every attempted compensation succeeded.
func (r *Result) RollbackComplete() bool {
	for _, o := range r.Rollback {
		if !o.OK {
			return false
		}
	}
	return true
}

// WorkspaceSpec describes the workspace to provision.
type WorkspaceSpec struct {
	// Name is the workspace display name.
	Name string `json:"name" yaml:"name" validate:"required,min=1,max=256"`

	// Description is the optional workspace description.
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=1024"`

	// Visibility is "public" or "private". Defaults to private.
	Visibility string `json:"visibility,omitempty" yaml:"visibility,omitempty" validate:"omitempty,oneof=public private"`

	// OwnerEmail optionally assigns an initial owner.
	OwnerEmail string `json:"owner_email,omitempty" yaml:"owner_email,omitempty"`
}

// ChannelSpec describes one channel to create inside the workspace.
type ChannelSpec struct {
	// Name is the channel display name, unique within the request.
	Name string `json:"name" yaml:"name" validate:"required,min=1,max=256"`

	// Description is the optional channel description.
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=1024"`

	// Type is "standard" or "private". Defaults to standard.
	Type string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=standard private"`
}

// MemberSpec describes one membership to create.
type MemberSpec struct {
	// Email identifies the account to add, unique within the request.
	Email string `json:"email" yaml:"email" validate:"required"`

	// Role is "owner" or "member". Defaults to member.
	Role string `json:"role,omitempty" yaml:"role,omitempty" validate:"omitempty,oneof=owner member"`
}

// Request is the composite provisioning request: one workspace plus any
// number of channels and members.
type Request struct {
	Workspace WorkspaceSpec `json:"workspace" yaml:"workspace" validate:"required"`
	Channels  []ChannelSpec `json:"channels,omitempty" yaml:"channels,omitempty" validate:"dive"`
	Members   []MemberSpec  `json:"members,omitempty" yaml:"members,omitempty" validate:"dive"`
}

// CreateAttrs carries the attributes for a single-resource create call.
type CreateAttrs struct {
	// WorkspaceID scopes channels and memberships to their workspace.
	WorkspaceID string `json:"workspace_id,omitempty"`

	// AccountID identifies the account for membership creation.
	AccountID string `json:"account_id,omitempty"`

	// Name is the display name for workspaces and channels.
	Name string `json:"name,omitempty"`

	// Description is the optional description.
	Description string `json:"description,omitempty"`

	// Visibility applies to workspaces ("public"/"private").
	Visibility string `json:"visibility,omitempty"`

	// ChannelType applies to channels ("standard"/"private").
	ChannelType string `json:"channel_type,omitempty"`

	// Role applies to memberships ("owner"/"member").
	Role string `json:"role,omitempty"`
}

// ResourceClient is the single-resource surface of the remote
// administrative API. Implementations classify every failure into the
// ProvisionError taxonomy and perform no orchestration logic.
type ResourceClient interface {
	// CreateResource creates one resource and returns its reference.
	CreateResource(ctx context.Context, kind ResourceKind, attrs CreateAttrs) (ResourceRef, error)

	// DeleteResource removes one resource. For workspaces the remote API
	// archives rather than hard-deletes; both leave the identifier
	// unreachable for subsequent provisioning.
	DeleteResource(ctx context.Context, kind ResourceKind, remoteID string) error

	// GetResource fetches one resource by ID.
	GetResource(ctx context.Context, kind ResourceKind, remoteID string) (ResourceRef, error)

	// ListResources lists resources of one kind, optionally scoped to a
	// parent workspace.
	ListResources(ctx context.Context, kind ResourceKind, workspaceID string) ([]ResourceRef, error)

	// ResolveAccount resolves an identifier (email) to an account reference.
	ResolveAccount(ctx context.Context, identifier string) (ResourceRef, error)
}
