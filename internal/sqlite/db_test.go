package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertApp(t *testing.T, db *DB, id string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO apps (id, name, created_on, modified_on) VALUES (?, ?, ?, ?)`,
		id, "App "+id, now, now)
	require.NoError(t, err)
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"apps",
		"study_activity_events",
		"participant_versions",
		"activity_log",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestMigrations_Reapply(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

func TestEventsTableConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertApp(t, db, "app1")
	now := time.Now().UTC()

	insert := `INSERT INTO study_activity_events
		(id, app_id, user_id, study_id, event_id, object_type, timestamp, created_on, update_type, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, insert, "e1", "app1", "u1", "s1", "enrollment", "ENROLLMENT", now, now, "IMMUTABLE", 1)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "e2", "app1", "u1", "s1", "enrollment", "ENROLLMENT", now, now, "IMMUTABLE", 1)
	require.Error(t, err, "should fail with duplicate revision")
	require.True(t, isUniqueViolation(err))

	_, err = db.ExecContext(ctx, insert, "e3", "missing", "u1", "s1", "enrollment", "ENROLLMENT", now, now, "IMMUTABLE", 1)
	require.Error(t, err, "should fail with unknown app")
	require.True(t, isForeignKeyViolation(err))

	_, err = db.ExecContext(ctx, insert, "e4", "app1", "u1", "s1", "created_on", "CREATED_ON", now, now, "SOMETIMES", 1)
	require.Error(t, err, "should fail with invalid update type")
}
