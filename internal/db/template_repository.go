package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencode-ai/memer/internal/models"
	"github.com/opencode-ai/memer/internal/templates"
)

// ErrTemplateRecordNotFound is returned when no record matches.
var ErrTemplateRecordNotFound = errors.New("template record not found")

// TemplateRepository stores metadata for pulled templates.
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, path, name, key, origin, pulled_at, metadata_json`

// Upsert inserts a record or replaces the one stored for the same path.
// The path is made absolute; ID and PulledAt are filled when empty.
func (r *TemplateRepository) Upsert(ctx context.Context, rec *models.TemplateRecord) error {
	if strings.TrimSpace(rec.Path) == "" {
		return fmt.Errorf("template path is required")
	}
	abs, err := filepath.Abs(rec.Path)
	if err != nil {
		return fmt.Errorf("resolve template path: %w", err)
	}
	rec.Path = abs

	if existing, err := r.GetByPath(ctx, abs); err == nil {
		rec.ID = existing.ID
	} else if !errors.Is(err, ErrTemplateRecordNotFound) {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.PulledAt.IsZero() {
		rec.PulledAt = time.Now().UTC()
	}

	var metadataJSON *string
	if rec.Metadata != nil {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		s := string(data)
		metadataJSON = &s
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			key = excluded.key,
			origin = excluded.origin,
			pulled_at = excluded.pulled_at,
			metadata_json = excluded.metadata_json
	`,
		rec.ID,
		rec.Path,
		rec.Name,
		rec.Key,
		rec.Origin,
		rec.PulledAt.UTC().Format(time.RFC3339),
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

// GetByPath returns the record for an absolute path.
func (r *TemplateRepository) GetByPath(ctx context.Context, path string) (*models.TemplateRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE path = ?`, path)
	return r.scanOne(row)
}

// GetByKey returns the record with an explicit key.
func (r *TemplateRepository) GetByKey(ctx context.Context, key string) (*models.TemplateRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE key = ? AND key != ''`, key)
	return r.scanOne(row)
}

// List returns all records ordered by name.
func (r *TemplateRepository) List(ctx context.Context) ([]*models.TemplateRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY name, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var records []*models.TemplateRecord
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return records, nil
}

// Delete removes the record for path.
func (r *TemplateRepository) Delete(ctx context.Context, path string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n == 0 {
		return ErrTemplateRecordNotFound
	}
	return nil
}

// Overrides returns the stored names and keys keyed by path, ready for
// templates.LoadOptions.
func (r *TemplateRepository) Overrides(ctx context.Context) (map[string]templates.Override, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]templates.Override, len(records))
	for _, rec := range records {
		overrides[rec.Path] = templates.Override{
			Name:   rec.Name,
			Key:    rec.Key,
			Origin: rec.Origin,
		}
	}
	return overrides, nil
}

func (r *TemplateRepository) scanOne(row *sql.Row) (*models.TemplateRecord, error) {
	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateRecordNotFound
	}
	return rec, err
}

func (r *TemplateRepository) scan(row rowScanner) (*models.TemplateRecord, error) {
	var rec models.TemplateRecord
	var pulledAt string
	var metadataJSON sql.NullString

	if err := row.Scan(
		&rec.ID,
		&rec.Path,
		&rec.Name,
		&rec.Key,
		&rec.Origin,
		&pulledAt,
		&metadataJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, pulledAt); err == nil {
		rec.PulledAt = t
	}
	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			r.db.logger.Warn().Err(err).Str("path", rec.Path).Msg("failed to parse template metadata")
		}
	}
	return &rec, nil
}
