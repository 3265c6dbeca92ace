package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// InsertTemplate stores a workout template. The exercise list is kept
// as jsonb; templates are read-only inputs to the engine and are never
// queried per-field.
func (db *DB) InsertTemplate(ctx context.Context, t models.Template) error {
	exercises, err := json.Marshal(t.Exercises)
	if err != nil {
		return fmt.Errorf("marshaling template exercises: %w", err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO templates (id, user_id, name, exercises, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$5)
		 ON CONFLICT (id) DO UPDATE SET name = $3, exercises = $4, updated_at = $5`,
		t.ID, t.UserID, t.Name, exercises, time.Now())
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a template by ID.
func (db *DB) GetTemplate(ctx context.Context, templateID uuid.UUID, userID int) (*models.Template, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, exercises, created_at, updated_at
		 FROM templates
		 WHERE id = $1 AND user_id = $2`,
		templateID, userID)

	var t models.Template
	var exercises []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &exercises, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("querying template: %w", err)
	}
	if err := json.Unmarshal(exercises, &t.Exercises); err != nil {
		return nil, fmt.Errorf("unmarshaling template exercises: %w", err)
	}
	return &t, nil
}

// ListTemplates retrieves all templates for a user, newest first.
func (db *DB) ListTemplates(ctx context.Context, userID int) ([]models.Template, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, exercises, created_at, updated_at
		 FROM templates
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		var t models.Template
		var exercises []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &exercises, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		if err := json.Unmarshal(exercises, &t.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshaling template exercises: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
