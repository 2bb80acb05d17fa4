// Package stores provides local persistence for provisioning templates
// and the audit trail of orchestration runs, backed by SQLite.
package stores

import (
	"context"
	"time"
)

// Template is a named, reusable composite provisioning request.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Request     string    `json:"request"` // JSON-encoded orchestrator.Request
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuditEntry records the outcome of one orchestration run.
type AuditEntry struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	Actor         string    `json:"actor"`
	WorkspaceName string    `json:"workspace_name"`
	Status        string    `json:"status"`
	FailedStep    *string   `json:"failed_step,omitempty"`
	ResourceCount int       `json:"resource_count"`
	Details       *string   `json:"details,omitempty"` // JSON blob
	Timestamp     time.Time `json:"timestamp"`
}

// Store defines the persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Template operations
	SaveTemplate(ctx context.Context, tpl *Template) error
	GetTemplate(ctx context.Context, name string) (*Template, error)
	ListTemplates(ctx context.Context, limit, offset int) ([]*Template, error)
	DeleteTemplate(ctx context.Context, name string) error

	// Audit operations
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, workspaceName *string, limit, offset int) ([]*AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
