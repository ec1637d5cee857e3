package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/rpggio/studyevents/internal/repository"
)

// VersionRepository implements participant.Repository for SQLite
type VersionRepository struct {
	db *DB
}

// NewVersionRepository creates a new VersionRepository
func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db}
}

const versionColumns = `
	app_id, health_code, version, created_on, modified_on,
	data_groups, languages, sharing_scope, study_memberships, time_zone
`

// GetLatest returns the highest version of a lineage
func (r *VersionRepository) GetLatest(ctx context.Context, appID, healthCode string) (*participant.Version, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM participant_versions
		WHERE app_id = ? AND health_code = ?
		ORDER BY version DESC
		LIMIT 1
	`, appID, healthCode)
	return scanVersion(row)
}

// Get returns one version of a lineage
func (r *VersionRepository) Get(ctx context.Context, appID, healthCode string, version int) (*participant.Version, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM participant_versions
		WHERE app_id = ? AND health_code = ? AND version = ?
	`, appID, healthCode, version)
	return scanVersion(row)
}

// List returns every version of a lineage, oldest first
func (r *VersionRepository) List(ctx context.Context, appID, healthCode string) ([]participant.Version, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM participant_versions
		WHERE app_id = ? AND health_code = ?
		ORDER BY version ASC
	`, appID, healthCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant versions: %w", err)
	}
	defer rows.Close()

	versions := []participant.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant version rows: %w", err)
	}
	return versions, nil
}

// Insert stores a new version. A taken version number is a conflict.
func (r *VersionRepository) Insert(ctx context.Context, v *participant.Version) error {
	dataGroups, err := json.Marshal(orEmptySlice(v.DataGroups))
	if err != nil {
		return fmt.Errorf("failed to encode data groups: %w", err)
	}
	languages, err := json.Marshal(orEmptySlice(v.Languages))
	if err != nil {
		return fmt.Errorf("failed to encode languages: %w", err)
	}
	memberships := v.StudyMemberships
	if memberships == nil {
		memberships = map[string]string{}
	}
	studyMemberships, err := json.Marshal(memberships)
	if err != nil {
		return fmt.Errorf("failed to encode study memberships: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO participant_versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.AppID,
		v.HealthCode,
		v.ParticipantVersion,
		v.CreatedOn.UTC(),
		v.ModifiedOn.UTC(),
		string(dataGroups),
		string(languages),
		string(v.SharingScope),
		string(studyMemberships),
		v.TimeZone,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert participant version: %w", err)
	}
	return nil
}

// DeleteAll removes a lineage and returns the number of versions removed
func (r *VersionRepository) DeleteAll(ctx context.Context, appID, healthCode string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM participant_versions WHERE app_id = ? AND health_code = ?
	`, appID, healthCode)
	if err != nil {
		return 0, fmt.Errorf("failed to delete participant versions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(s scanner) (*participant.Version, error) {
	var v participant.Version
	var dataGroups, languages, memberships string
	err := s.Scan(
		&v.AppID,
		&v.HealthCode,
		&v.ParticipantVersion,
		&v.CreatedOn,
		&v.ModifiedOn,
		&dataGroups,
		&languages,
		&v.SharingScope,
		&memberships,
		&v.TimeZone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan participant version: %w", err)
	}

	if err := json.Unmarshal([]byte(dataGroups), &v.DataGroups); err != nil {
		return nil, fmt.Errorf("failed to decode data groups: %w", err)
	}
	if err := json.Unmarshal([]byte(languages), &v.Languages); err != nil {
		return nil, fmt.Errorf("failed to decode languages: %w", err)
	}
	if err := json.Unmarshal([]byte(memberships), &v.StudyMemberships); err != nil {
		return nil, fmt.Errorf("failed to decode study memberships: %w", err)
	}
	return &v, nil
}

func orEmptySlice(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
