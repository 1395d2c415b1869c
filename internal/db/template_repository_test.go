package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencode-ai/memer/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if _, err := database.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	applied, err := database.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no pending migrations, got %d", applied)
	}

	version, err := database.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("expected version %d, got %d", len(migrations), version)
	}
}

func TestOpenFileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "memer.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := database.MigrateUp(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := NewTemplateRepository(database)
	if err := repo.Upsert(ctx, &models.TemplateRecord{Path: "/tmp/drake.png", Name: "Drake"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	database.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != path {
		t.Errorf("expected path %q, got %q", path, reopened.Path())
	}

	records, err := NewTemplateRepository(reopened).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Drake" {
		t.Fatalf("expected persisted Drake record, got %+v", records)
	}
}

func TestTemplateRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(openTestDB(t))

	rec := &models.TemplateRecord{
		Path:     "/data/templates/drake.png",
		Name:     "Drake",
		Key:      "drake01",
		Origin:   "https://i.imgflip.com/30b1gx.jpg",
		Metadata: map[string]string{"format": "png"},
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected ID to be set")
	}
	if rec.PulledAt.IsZero() {
		t.Error("expected PulledAt to be set")
	}

	got, err := repo.GetByKey(ctx, "drake01")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.Name != "Drake" || got.Origin != rec.Origin {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Metadata["format"] != "png" {
		t.Errorf("expected metadata to round trip, got %v", got.Metadata)
	}

	// Same path replaces in place and keeps the ID.
	update := &models.TemplateRecord{
		Path:     rec.Path,
		Name:     "Drake Hotline Bling",
		PulledAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := repo.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if update.ID != rec.ID {
		t.Errorf("expected ID %q to be kept, got %q", rec.ID, update.ID)
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Name != "Drake Hotline Bling" || records[0].Key != "" {
		t.Errorf("unexpected record after update: %+v", records[0])
	}
	if !records[0].PulledAt.Equal(update.PulledAt) {
		t.Errorf("expected PulledAt %v, got %v", update.PulledAt, records[0].PulledAt)
	}

	if _, err := repo.GetByKey(ctx, "drake01"); !errors.Is(err, ErrTemplateRecordNotFound) {
		t.Errorf("expected ErrTemplateRecordNotFound for dropped key, got %v", err)
	}
	if _, err := repo.GetByKey(ctx, ""); !errors.Is(err, ErrTemplateRecordNotFound) {
		t.Errorf("empty key must never match, got %v", err)
	}

	if err := repo.Upsert(ctx, &models.TemplateRecord{Name: "no path"}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestTemplateRepositoryDeleteAndOverrides(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(openTestDB(t))

	for _, rec := range []*models.TemplateRecord{
		{Path: "/t/b.png", Name: "Bravo", Key: "b"},
		{Path: "/t/a.png", Name: "Alpha", Origin: "https://example.com/a.png"},
	} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 || records[0].Name != "Alpha" || records[1].Name != "Bravo" {
		t.Fatalf("expected records ordered by name, got %+v", records)
	}

	overrides, err := repo.Overrides(ctx)
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if got := overrides["/t/b.png"]; got.Name != "Bravo" || got.Key != "b" {
		t.Errorf("unexpected override for b: %+v", got)
	}
	if got := overrides["/t/a.png"]; got.Origin != "https://example.com/a.png" {
		t.Errorf("unexpected override for a: %+v", got)
	}

	if err := repo.Delete(ctx, "/t/a.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "/t/a.png"); !errors.Is(err, ErrTemplateRecordNotFound) {
		t.Errorf("expected ErrTemplateRecordNotFound, got %v", err)
	}
	if _, err := repo.GetByPath(ctx, "/t/a.png"); !errors.Is(err, ErrTemplateRecordNotFound) {
		t.Errorf("expected deleted record to be gone, got %v", err)
	}
}
