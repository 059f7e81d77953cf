package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/pgvector/pgvector-go"
)

// TemplateRepository provides PostgreSQL-backed storage of enrolled face embeddings
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a new PostgreSQL template repository
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// GetTemplates returns all templates ordered by name, then id
func (r *TemplateRepository) GetTemplates(ctx context.Context) ([]database.StoredTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, source, embedding, det_score, model, dim, created_at
		FROM face_templates
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []database.StoredTemplate
	for rows.Next() {
		var t database.StoredTemplate
		var vec pgvector.Vector
		if err := rows.Scan(&t.ID, &t.Name, &t.Source, &vec, &t.DetScore, &t.Model, &t.Dim, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Embedding = vec.Slice()
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// Count returns the total number of templates stored
func (r *TemplateRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_templates").Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

// ReplaceTemplates atomically replaces the templates of one student
func (r *TemplateRepository) ReplaceTemplates(ctx context.Context, name string, templates []database.StoredTemplate) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM face_templates WHERE name = $1", name); err != nil {
		return fmt.Errorf("delete old templates: %w", err)
	}

	for i := range templates {
		t := &templates[i]
		dim := t.Dim
		if dim == 0 {
			dim = len(t.Embedding)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO face_templates (name, source, embedding, det_score, model, dim)
			VALUES ($1, $2, $3::vector, $4, $5, $6)
		`, name, t.Source, pgvector.NewVector(t.Embedding), t.DetScore, t.Model, dim); err != nil {
			return fmt.Errorf("insert template %d for %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteTemplates removes all templates of one student
func (r *TemplateRepository) DeleteTemplates(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM face_templates WHERE name = $1", name); err != nil {
		return fmt.Errorf("delete templates: %w", err)
	}
	return nil
}
