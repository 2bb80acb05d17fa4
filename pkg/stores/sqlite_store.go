package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration. Zero pool values fall back to
// the defaults below.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connection pool defaults
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	return c
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		cfg: cfg.withDefaults(),
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveTemplate inserts a new template or bumps the version of an existing
// one with the same name.
func (s *SQLiteStore) SaveTemplate(ctx context.Context, tpl *Template) error {
	now := time.Now().UTC()

	existing, err := s.GetTemplate(ctx, tpl.Name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if existing != nil {
		query := `
			UPDATE templates
			SET description = ?, request = ?, version = version + 1, updated_at = ?
			WHERE name = ?
		`
		if _, err := s.db.ExecContext(ctx, query, tpl.Description, tpl.Request, now, tpl.Name); err != nil {
			return fmt.Errorf("failed to update template: %w", err)
		}
		tpl.ID = existing.ID
		tpl.Version = existing.Version + 1
		tpl.CreatedAt = existing.CreatedAt
		tpl.UpdatedAt = now
		return nil
	}

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	tpl.Version = 1
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	query := `
		INSERT INTO templates (id, name, description, request, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Description,
		tpl.Request,
		tpl.Version,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetTemplate retrieves a template by name
func (s *SQLiteStore) GetTemplate(ctx context.Context, name string) (*Template, error) {
	query := `
		SELECT id, name, description, request, version, created_at, updated_at
		FROM templates
		WHERE name = ?
	`

	tpl := &Template{}
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.Request,
		&tpl.Version,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return tpl, nil
}

// ListTemplates lists templates with pagination
func (s *SQLiteStore) ListTemplates(ctx context.Context, limit, offset int) ([]*Template, error) {
	query := `
		SELECT id, name, description, request, version, created_at, updated_at
		FROM templates
		ORDER BY name ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []*Template{}
	for rows.Next() {
		tpl := &Template{}
		err := rows.Scan(
			&tpl.ID,
			&tpl.Name,
			&tpl.Description,
			&tpl.Request,
			&tpl.Version,
			&tpl.CreatedAt,
			&tpl.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// DeleteTemplate deletes a template by name
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, name string) error {
	query := `DELETE FROM templates WHERE name = ?`

	result, err := s.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("template %q: %w", name, ErrNotFound)
	}

	return nil
}

// AppendAudit appends a new audit entry
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	query := `
		INSERT INTO audit (run_id, actor, workspace_name, status, failed_step, resource_count, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.RunID,
		entry.Actor,
		entry.WorkspaceName,
		entry.Status,
		entry.FailedStep,
		entry.ResourceCount,
		entry.Details,
		entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// ListAudit lists audit entries, optionally filtered by workspace name,
// newest first.
func (s *SQLiteStore) ListAudit(ctx context.Context, workspaceName *string, limit, offset int) ([]*AuditEntry, error) {
	query := `
		SELECT id, run_id, actor, workspace_name, status, failed_step, resource_count, details, timestamp
		FROM audit
		WHERE (? IS NULL OR workspace_name = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, workspaceName, workspaceName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*AuditEntry{}
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.RunID,
			&entry.Actor,
			&entry.WorkspaceName,
			&entry.Status,
			&entry.FailedStep,
			&entry.ResourceCount,
			&entry.Details,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
