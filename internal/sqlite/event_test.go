package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/repository"
	"github.com/stretchr/testify/require"
)

func newEvent(id, eventID string, ts time.Time) *event.StudyActivityEvent {
	return &event.StudyActivityEvent{
		ID:         id,
		AppID:      "app1",
		UserID:     "u1",
		StudyID:    "s1",
		EventID:    eventID,
		ObjectType: event.ObjectSession,
		ObjectID:   "abc",
		Timestamp:  ts,
		CreatedOn:  ts,
		UpdateType: event.UpdateMutable,
	}
}

func TestEventRepository_InsertAndGetRecent(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertApp(t, db, "app1")
	repo := NewEventRepository(db)

	t0 := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	first := newEvent("r1", "session:abc", t0)
	require.NoError(t, repo.Insert(ctx, first, 0))
	require.Equal(t, int64(1), first.Revision)

	second := newEvent("r2", "session:abc", t0.Add(time.Hour))
	second.ClientTimeZone = "America/Denver"
	require.NoError(t, repo.Insert(ctx, second, 1))

	other := newEvent("r3", "session:xyz", t0)
	require.NoError(t, repo.Insert(ctx, other, 0))

	recent, err := repo.GetRecent(ctx, "app1", "u1", "s1")
	require.NoError(t, err)
	require.Len(t, recent, 2)
	got := recent["session:abc"]
	require.Equal(t, "r2", got.ID)
	require.Equal(t, int64(2), got.Revision)
	require.True(t, t0.Add(time.Hour).Equal(got.Timestamp))
	require.Equal(t, "America/Denver", got.ClientTimeZone)
	require.Equal(t, event.ObjectSession, got.ObjectType)
	require.Equal(t, event.UpdateMutable, got.UpdateType)

	global, err := repo.GetRecent(ctx, "app1", "u1", "")
	require.NoError(t, err)
	require.Empty(t, global)
}

func TestEventRepository_InsertConflict(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertApp(t, db, "app1")
	repo := NewEventRepository(db)

	t0 := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newEvent("r1", "session:abc", t0), 0))

	err := repo.Insert(ctx, newEvent("r2", "session:abc", t0.Add(time.Minute)), 0)
	require.ErrorIs(t, err, repository.ErrConflict)

	err = repo.Insert(ctx, newEvent("r3", "session:abc", t0.Add(time.Minute)), 5)
	require.ErrorIs(t, err, repository.ErrConflict)

	page, total, err := repo.History(ctx, "app1", "u1", "s1", "session:abc", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, page, 1)
}

func TestEventRepository_UnknownApp(t *testing.T) {
	db := NewTestDB(t)
	repo := NewEventRepository(db)

	ev := newEvent("r1", "session:abc", time.Now())
	ev.AppID = "missing"
	err := repo.Insert(context.Background(), ev, 0)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEventRepository_History(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertApp(t, db, "app1")
	repo := NewEventRepository(db)

	t0 := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		ev := newEvent(fmt.Sprintf("r%d", i), "session:abc", t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Insert(ctx, ev, int64(i)))
	}

	page, total, err := repo.History(ctx, "app1", "u1", "s1", "session:abc", 0, 5)
	require.NoError(t, err)
	require.Equal(t, 7, total)
	require.Len(t, page, 5)
	require.Equal(t, "r6", page[0].ID)
	require.Equal(t, "r2", page[4].ID)

	page, total, err = repo.History(ctx, "app1", "u1", "s1", "session:abc", 5, 5)
	require.NoError(t, err)
	require.Equal(t, 7, total)
	require.Len(t, page, 2)
	require.Equal(t, "r0", page[1].ID)
}

func TestEventRepository_Delete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertApp(t, db, "app1")
	repo := NewEventRepository(db)

	t0 := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, newEvent("r1", "custom:x", t0), 0))
	require.NoError(t, repo.Insert(ctx, newEvent("r2", "custom:x", t0.Add(time.Hour)), 1))

	deleted, err := repo.Delete(ctx, "app1", "u1", "s1", "custom:x")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.Delete(ctx, "app1", "u1", "s1", "custom:x")
	require.NoError(t, err)
	require.False(t, deleted)

	_, total, err := repo.History(ctx, "app1", "u1", "s1", "custom:x", 0, 5)
	require.NoError(t, err)
	require.Zero(t, total)

	require.NoError(t, repo.Insert(ctx, newEvent("r3", "custom:x", t0), 0))
}
