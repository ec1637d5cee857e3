package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/repository"
)

// EventRepository implements event.Repository for SQLite. Every accepted
// publish is a row; the row with the highest revision per event ID is the
// most recent event.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	id, app_id, user_id, study_id, event_id, object_type, object_id,
	timestamp, created_on, update_type, client_time_zone, revision
`

// GetRecent returns the most recent event per event ID
func (r *EventRepository) GetRecent(ctx context.Context, appID, userID, studyID string) (map[string]*event.StudyActivityEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM study_activity_events e
		WHERE app_id = ? AND user_id = ? AND study_id = ?
		AND revision = (
			SELECT MAX(m.revision) FROM study_activity_events m
			WHERE m.app_id = e.app_id AND m.user_id = e.user_id
			AND m.study_id = e.study_id AND m.event_id = e.event_id
		)
	`

	rows, err := r.db.QueryContext(ctx, query, appID, userID, studyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	recent := map[string]*event.StudyActivityEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		recent[ev.EventID] = ev
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return recent, nil
}

// Insert stores ev as the next revision of its event ID. It fails with
// repository.ErrConflict if the stored revision is no longer expectedRevision.
func (r *EventRepository) Insert(ctx context.Context, ev *event.StudyActivityEvent, expectedRevision int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(revision), 0) FROM study_activity_events
		WHERE app_id = ? AND user_id = ? AND study_id = ? AND event_id = ?
	`, ev.AppID, ev.UserID, ev.StudyID, ev.EventID).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read event revision: %w", err)
	}
	if current != expectedRevision {
		return repository.ErrConflict
	}

	revision := expectedRevision + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO study_activity_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		ev.AppID,
		ev.UserID,
		ev.StudyID,
		ev.EventID,
		string(ev.ObjectType),
		ev.ObjectID,
		ev.Timestamp.UTC(),
		ev.CreatedOn.UTC(),
		string(ev.UpdateType),
		ev.ClientTimeZone,
		revision,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if isForeignKeyViolation(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	ev.Revision = revision
	return nil
}

// Delete removes an event ID and its history
func (r *EventRepository) Delete(ctx context.Context, appID, userID, studyID, eventID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM study_activity_events
		WHERE app_id = ? AND user_id = ? AND study_id = ? AND event_id = ?
	`, appID, userID, studyID, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return rows > 0, nil
}

// History returns accepted publishes of an event ID, newest first, and the
// total number of them
func (r *EventRepository) History(ctx context.Context, appID, userID, studyID, eventID string, offset, limit int) ([]event.StudyActivityEvent, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM study_activity_events
		WHERE app_id = ? AND user_id = ? AND study_id = ? AND event_id = ?
	`, appID, userID, studyID, eventID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count event history: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM study_activity_events
		WHERE app_id = ? AND user_id = ? AND study_id = ? AND event_id = ?
		ORDER BY revision DESC
		LIMIT ? OFFSET ?
	`, appID, userID, studyID, eventID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query event history: %w", err)
	}
	defer rows.Close()

	var items []event.StudyActivityEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating event rows: %w", err)
	}
	return items, total, nil
}

func scanEvent(rows *sql.Rows) (*event.StudyActivityEvent, error) {
	var ev event.StudyActivityEvent
	if err := rows.Scan(
		&ev.ID,
		&ev.AppID,
		&ev.UserID,
		&ev.StudyID,
		&ev.EventID,
		&ev.ObjectType,
		&ev.ObjectID,
		&ev.Timestamp,
		&ev.CreatedOn,
		&ev.UpdateType,
		&ev.ClientTimeZone,
		&ev.Revision,
	); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return &ev, nil
}
