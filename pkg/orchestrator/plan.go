package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/orgforge/orgforge/pkg/validate"
)

// requestValidator checks struct-level constraints on composite requests.
var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// Step name prefixes. The failed-step name in a Result uses these, e.g.
// "create-channel-Leads".
const (
	stepCreateWorkspace = "create-workspace"
	stepCreateChannel   = "create-channel-"
	stepResolveAccount  = "resolve-account-"
	stepAddMember       = "add-member-"
)

// planState is shared by the forward closures of one plan. The dependency
// graph guarantees writers complete before readers start; the mutex covers
// concurrent sibling access within a level.
type planState struct {
	mu          sync.Mutex
	workspaceID string
	accounts    map[string]string // email -> account remote ID
}

func (s *planState) setWorkspace(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaceID = id
}

func (s *planState) workspace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID
}

func (s *planState) setAccount(email, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = id
}

func (s *planState) account(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email]
}

// ValidateRequest rejects malformed composite requests before any remote
// call is made. Duplicate channel names and duplicate member identifiers
// are errors; so are invalid email addresses.
func ValidateRequest(req Request) error {
	if err := requestValidator.Struct(req); err != nil {
		return NewValidationError("invalid provisioning request", err)
	}
	if strings.TrimSpace(req.Workspace.Name) == "" {
		return NewValidationError("workspace name must not be blank", nil).WithCode(ErrCodeEmptyName)
	}
	if req.Workspace.OwnerEmail != "" && !validate.Email(req.Workspace.OwnerEmail) {
		return NewValidationError("invalid owner email: "+req.Workspace.OwnerEmail, nil).
			WithCode(ErrCodeInvalidEmail)
	}

	seenChannels := make(map[string]struct{}, len(req.Channels))
	for _, ch := range req.Channels {
		name := strings.TrimSpace(ch.Name)
		if name == "" {
			return NewValidationError("channel name must not be blank", nil).WithCode(ErrCodeEmptyName)
		}
		if _, dup := seenChannels[name]; dup {
			return NewValidationError("duplicate channel name: "+name, nil).
				WithCode(ErrCodeDuplicateChannel)
		}
		seenChannels[name] = struct{}{}
	}

	seenMembers := make(map[string]struct{}, len(req.Members))
	for _, m := range req.Members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if !validate.Email(email) {
			return NewValidationError("invalid member email: "+m.Email, nil).
				WithCode(ErrCodeInvalidEmail)
		}
		if _, dup := seenMembers[email]; dup {
			return NewValidationError("duplicate member: "+email, nil).
				WithCode(ErrCodeDuplicateMember)
		}
		seenMembers[email] = struct{}{}
	}

	return nil
}

// BuildPlan expands a composite request into a dependency-ordered plan of
// primitive steps. The builder performs no I/O: the returned steps carry
// closures that execute later, under the orchestrator's retry policy.
//
// Ordering: the workspace step is the single root. Channel-creation and
// account-resolution steps depend on it. Each membership step depends on
// the workspace step and on the resolution step for its email.
func (o *Orchestrator) BuildPlan(req Request) (*Plan, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	state := &planState{accounts: make(map[string]string)}
	steps := make([]Step, 0, 1+len(req.Channels)+2*len(req.Members)+2)

	steps = append(steps, o.workspaceStep(req.Workspace, state))

	for _, ch := range req.Channels {
		steps = append(steps, o.channelStep(ch, state))
	}

	members := effectiveMembers(req)
	for _, m := range members {
		steps = append(steps, o.resolveStep(m.Email, state))
		steps = append(steps, o.memberStep(m, state))
	}

	levels, err := newDAGBuilder().buildLevels(steps)
	if err != nil {
		return nil, err
	}

	return &Plan{
		ID:            uuid.New().String(),
		WorkspaceName: req.Workspace.Name,
		Steps:         steps,
		Levels:        levels,
		CreatedAt:     time.Now(),
	}, nil
}

// effectiveMembers merges the optional workspace owner into the member
// list as an owner-role membership, unless already listed.
func effectiveMembers(req Request) []MemberSpec {
	members := make([]MemberSpec, 0, len(req.Members)+1)
	seen := make(map[string]struct{}, len(req.Members)+1)

	if req.Workspace.OwnerEmail != "" {
		email := strings.ToLower(strings.TrimSpace(req.Workspace.OwnerEmail))
		members = append(members, MemberSpec{Email: email, Role: "owner"})
		seen[email] = struct{}{}
	}
	for _, m := range req.Members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		members = append(members, MemberSpec{Email: email, Role: m.Role})
	}
	return members
}

func (o *Orchestrator) workspaceStep(spec WorkspaceSpec, state *planState) Step {
	visibility := spec.Visibility
	if visibility == "" {
		visibility = "private"
	}

	return Step{
		ID:   stepCreateWorkspace,
		Name: stepCreateWorkspace,
		Kind: KindWorkspace,
		Forward: func(ctx context.Context) (ResourceRef, error) {
			var ref ResourceRef
			err := o.retry.do(ctx, func(ctx context.Context) error {
				var callErr error
				ref, callErr = o.client.CreateResource(ctx, KindWorkspace, CreateAttrs{
					Name:        spec.Name,
					Description: spec.Description,
					Visibility:  visibility,
				})
				return callErr
			})
			if err == nil {
				state.setWorkspace(ref.RemoteID)
			}
			return ref, err
		},
		Compensate: func(ctx context.Context, ref ResourceRef) error {
			return o.client.DeleteResource(ctx, KindWorkspace, ref.RemoteID)
		},
	}
}

func (o *Orchestrator) channelStep(spec ChannelSpec, state *planState) Step {
	name := stepCreateChannel + strings.TrimSpace(spec.Name)
	channelType := spec.Type
	if channelType == "" {
		channelType = "standard"
	}

	return Step{
		ID:        name,
		Name:      name,
		Kind:      KindChannel,
		DependsOn: []string{stepCreateWorkspace},
		Forward: func(ctx context.Context) (ResourceRef, error) {
			var ref ResourceRef
			err := o.retry.do(ctx, func(ctx context.Context) error {
				var callErr error
				ref, callErr = o.client.CreateResource(ctx, KindChannel, CreateAttrs{
					WorkspaceID: state.workspace(),
					Name:        spec.Name,
					Description: spec.Description,
					ChannelType: channelType,
				})
				return callErr
			})
			return ref, err
		},
		Compensate: func(ctx context.Context, ref ResourceRef) error {
			return o.client.DeleteResource(ctx, KindChannel, ref.RemoteID)
		},
	}
}

func (o *Orchestrator) resolveStep(email string, state *planState) Step {
	name := stepResolveAccount + email

	return Step{
		ID:        name,
		Name:      name,
		Kind:      KindAccount,
		DependsOn: []string{stepCreateWorkspace},
		Forward: func(ctx context.Context) (ResourceRef, error) {
			var ref ResourceRef
			err := o.retry.do(ctx, func(ctx context.Context) error {
				var callErr error
				ref, callErr = o.client.ResolveAccount(ctx, email)
				return callErr
			})
			if err == nil {
				state.setAccount(email, ref.RemoteID)
			}
			return ref, err
		},
		// Resolution creates nothing remotely; there is nothing to undo.
		Compensate: nil,
	}
}

func (o *Orchestrator) memberStep(spec MemberSpec, state *planState) Step {
	name := stepAddMember + spec.Email
	role := spec.Role
	if role == "" {
		role = "member"
	}

	return Step{
		ID:        name,
		Name:      name,
		Kind:      KindMembership,
		DependsOn: []string{stepCreateWorkspace, stepResolveAccount + spec.Email},
		Forward: func(ctx context.Context) (ResourceRef, error) {
			accountID := state.account(spec.Email)
			if accountID == "" {
				return ResourceRef{}, NewInternalError(
					fmt.Sprintf("account %s not resolved before membership step", spec.Email), nil)
			}
			var ref ResourceRef
			err := o.retry.do(ctx, func(ctx context.Context) error {
				var callErr error
				ref, callErr = o.client.CreateResource(ctx, KindMembership, CreateAttrs{
					WorkspaceID: state.workspace(),
					AccountID:   accountID,
					Role:        role,
				})
				return callErr
			})
			return ref, err
		},
		Compensate: func(ctx context.Context, ref ResourceRef) error {
			return o.client.DeleteResource(ctx, KindMembership, ref.RemoteID)
		},
	}
}
