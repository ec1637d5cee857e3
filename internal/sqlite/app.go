package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/repository"
)

// AppRepository implements app.Repository for SQLite
type AppRepository struct {
	db *DB
}

// NewAppRepository creates a new AppRepository
func NewAppRepository(db *DB) *AppRepository {
	return &AppRepository{db: db}
}

// Create inserts a new app
func (r *AppRepository) Create(ctx context.Context, a *app.App) error {
	customEvents, automatic, err := encodeAppConfig(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO apps (id, name, custom_events, automatic_custom_events, created_on, modified_on)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		customEvents,
		automatic,
		a.CreatedOn.UTC(),
		a.ModifiedOn.UTC(),
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}

// Get retrieves an app by ID
func (r *AppRepository) Get(ctx context.Context, id string) (*app.App, error) {
	query := `
		SELECT id, name, custom_events, automatic_custom_events, created_on, modified_on
		FROM apps
		WHERE id = ?
	`

	var a app.App
	var customEvents, automatic string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.Name,
		&customEvents,
		&automatic,
		&a.CreatedOn,
		&a.ModifiedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get app: %w", err)
	}

	if err := json.Unmarshal([]byte(customEvents), &a.CustomEvents); err != nil {
		return nil, fmt.Errorf("failed to decode custom events: %w", err)
	}
	if err := json.Unmarshal([]byte(automatic), &a.AutomaticCustomEvents); err != nil {
		return nil, fmt.Errorf("failed to decode automatic custom events: %w", err)
	}
	return &a, nil
}

// Update replaces the stored configuration of an app
func (r *AppRepository) Update(ctx context.Context, a *app.App) error {
	customEvents, automatic, err := encodeAppConfig(a)
	if err != nil {
		return err
	}

	query := `
		UPDATE apps
		SET name = ?, custom_events = ?, automatic_custom_events = ?, modified_on = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		customEvents,
		automatic,
		a.ModifiedOn.UTC(),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update app: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func encodeAppConfig(a *app.App) (string, string, error) {
	customEvents := a.CustomEvents
	if customEvents == nil {
		customEvents = map[string]app.UpdateType{}
	}
	automatic := a.AutomaticCustomEvents
	if automatic == nil {
		automatic = map[string]string{}
	}

	ce, err := json.Marshal(customEvents)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode custom events: %w", err)
	}
	ae, err := json.Marshal(automatic)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode automatic custom events: %w", err)
	}
	return string(ce), string(ae), nil
}
