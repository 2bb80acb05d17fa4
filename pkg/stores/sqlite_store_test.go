package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore(Config{})
	if err == nil {
		t.Fatal("Expected error for empty path, got nil")
	}
}

func TestNewSQLiteStore_PoolConfigHonored(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    3,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if got := store.db.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("Expected max open connections 3, got %d", got)
	}
}

func TestNewSQLiteStore_PoolDefaults(t *testing.T) {
	store := newTestStore(t)

	if got := store.db.Stats().MaxOpenConnections; got != defaultMaxOpenConns {
		t.Errorf("Expected default max open connections %d, got %d", defaultMaxOpenConns, got)
	}
}

func TestStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("Expected healthy store, got: %v", err)
	}
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Migrate(context.Background()); err != nil {
		t.Errorf("Expected second migrate to be a no-op, got: %v", err)
	}
}

func TestStore_SaveAndGetTemplate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tpl := &Template{
		Name:        "sales-team",
		Description: "standard sales workspace",
		Request:     `{"workspace":{"name":"Sales"}}`,
	}
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}

	if tpl.ID == "" {
		t.Error("Expected ID assigned on save")
	}
	if tpl.Version != 1 {
		t.Errorf("Expected version 1, got %d", tpl.Version)
	}

	got, err := store.GetTemplate(ctx, "sales-team")
	if err != nil {
		t.Fatalf("Failed to get template: %v", err)
	}
	if got.Name != tpl.Name || got.Request != tpl.Request || got.Description != tpl.Description {
		t.Errorf("Round-trip mismatch: %+v", got)
	}
}

func TestStore_SaveTemplateBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Template{Name: "eng", Request: `{"workspace":{"name":"Eng"}}`}
	if err := store.SaveTemplate(ctx, first); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}

	second := &Template{Name: "eng", Request: `{"workspace":{"name":"Engineering"}}`}
	if err := store.SaveTemplate(ctx, second); err != nil {
		t.Fatalf("Failed to update template: %v", err)
	}

	if second.Version != 2 {
		t.Errorf("Expected version 2, got %d", second.Version)
	}
	if second.ID != first.ID {
		t.Errorf("Expected stable ID across versions")
	}

	got, err := store.GetTemplate(ctx, "eng")
	if err != nil {
		t.Fatalf("Failed to get template: %v", err)
	}
	if got.Version != 2 || got.Request != second.Request {
		t.Errorf("Expected updated template, got %+v", got)
	}
}

func TestStore_GetTemplate_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTemplate(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestStore_ListTemplates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		tpl := &Template{Name: name, Request: "{}"}
		if err := store.SaveTemplate(ctx, tpl); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
	}

	templates, err := store.ListTemplates(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list templates: %v", err)
	}

	if len(templates) != 3 {
		t.Fatalf("Expected 3 templates, got %d", len(templates))
	}
	// Listing is ordered by name.
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if templates[i].Name != name {
			t.Errorf("Expected %s at position %d, got %s", name, i, templates[i].Name)
		}
	}

	page, err := store.ListTemplates(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Failed to page templates: %v", err)
	}
	if len(page) != 1 || page[0].Name != "mid" {
		t.Errorf("Expected page [mid], got %+v", page)
	}
}

func TestStore_DeleteTemplate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tpl := &Template{Name: "gone", Request: "{}"}
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}

	if err := store.DeleteTemplate(ctx, "gone"); err != nil {
		t.Fatalf("Failed to delete template: %v", err)
	}
	if _, err := store.GetTemplate(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got: %v", err)
	}

	if err := store.DeleteTemplate(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for double delete, got: %v", err)
	}
}

func TestStore_AppendAndListAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	failedStep := "create-channel-Leads"
	entries := []*AuditEntry{
		{
			RunID:         "run-1",
			Actor:         "alice",
			WorkspaceName: "Sales",
			Status:        "succeeded",
			ResourceCount: 4,
			Timestamp:     time.Now().UTC().Add(-time.Hour),
		},
		{
			RunID:         "run-2",
			Actor:         "bob",
			WorkspaceName: "Sales",
			Status:        "rolled_back",
			FailedStep:    &failedStep,
			Timestamp:     time.Now().UTC(),
		},
		{
			RunID:         "run-3",
			WorkspaceName: "Eng",
			Status:        "succeeded",
			ResourceCount: 2,
			Timestamp:     time.Now().UTC().Add(-time.Minute),
		},
	}
	for _, e := range entries {
		if err := store.AppendAudit(ctx, e); err != nil {
			t.Fatalf("Failed to append audit entry: %v", err)
		}
		if e.ID == 0 {
			t.Error("Expected auto-generated audit ID")
		}
	}

	all, err := store.ListAudit(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list audit: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all))
	}
	// Newest first.
	if all[0].RunID != "run-2" {
		t.Errorf("Expected run-2 first, got %s", all[0].RunID)
	}
	if all[0].FailedStep == nil || *all[0].FailedStep != failedStep {
		t.Errorf("Expected failed step carried, got %v", all[0].FailedStep)
	}

	sales := "Sales"
	filtered, err := store.ListAudit(ctx, &sales, 10, 0)
	if err != nil {
		t.Fatalf("Failed to filter audit: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 Sales entries, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.WorkspaceName != "Sales" {
			t.Errorf("Expected Sales entries only, got %s", e.WorkspaceName)
		}
	}
}

func TestStore_UninitializedGuards(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Migrate(context.Background()); err == nil {
		t.Error("Expected error migrating before Init")
	}
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Error("Expected error health-checking before Init")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Expected Close before Init to be a no-op, got: %v", err)
	}
}
