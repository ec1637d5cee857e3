package integration_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/rpggio/studyevents/internal/sqlite"
)

type testEnv struct {
	db  *sqlite.DB
	now time.Time

	appSvc      *app.Service
	eventSvc    *event.Service
	versionSvc  *participant.Service
	activitySvc *activity.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{db: db, now: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.now }

	appRepo := sqlite.NewAppRepository(db)
	env.activitySvc = activity.NewService(sqlite.NewActivityRepository(db), nil)
	env.appSvc = app.NewService(appRepo, env.activitySvc, nil)
	env.eventSvc = event.NewService(sqlite.NewEventRepository(db), appRepo, env.activitySvc, nil,
		event.WithClock(clock),
		event.WithRetryAttempts(10),
	)
	env.versionSvc = participant.NewService(sqlite.NewVersionRepository(db), env.activitySvc, nil,
		participant.WithClock(clock),
		participant.WithRetryAttempts(10),
	)

	_, err = env.appSvc.Create(context.Background(), app.CreateRequest{
		ID:   "app1",
		Name: "App One",
		CustomEvents: map[string]app.UpdateType{
			"baseline_done": app.UpdateMutable,
			"consented":     app.UpdateImmutable,
			"reminder":      app.UpdateFutureOnly,
		},
		AutomaticCustomEvents: map[string]string{
			"custom:followup": "baseline_done:P7D",
		},
	})
	require.NoError(t, err)
	return env
}

func (env *testEnv) publish(t *testing.T, objectType event.ObjectType, objectID string, ts time.Time) *event.PublishResult {
	t.Helper()
	res, err := env.eventSvc.Publish(context.Background(), event.Request{
		AppID:      "app1",
		UserID:     "user1",
		StudyID:    "study1",
		ObjectType: objectType,
		ObjectID:   objectID,
		Timestamp:  ts,
	})
	require.NoError(t, err)
	return res
}

func (env *testEnv) recent(t *testing.T, studyID string) map[string]event.StudyActivityEvent {
	t.Helper()
	var (
		events []event.StudyActivityEvent
		err    error
	)
	if studyID == "" {
		events, err = env.eventSvc.GetRecentGlobal(context.Background(), "app1", "user1")
	} else {
		events, err = env.eventSvc.GetRecent(context.Background(), "app1", studyID, "user1")
	}
	require.NoError(t, err)
	byID := make(map[string]event.StudyActivityEvent, len(events))
	for _, ev := range events {
		byID[ev.EventID] = ev
	}
	return byID
}

func (env *testEnv) historyTotal(t *testing.T, studyID, eventID string) int {
	t.Helper()
	page, err := env.eventSvc.GetHistory(context.Background(), event.HistoryQuery{
		AppID: "app1", UserID: "user1", StudyID: studyID, EventID: eventID,
	})
	require.NoError(t, err)
	return page.Total
}

func TestIntegration_AutomaticFollowup(t *testing.T) {
	env := newTestEnv(t)
	ts := time.Date(2024, time.March, 4, 15, 30, 0, 0, time.UTC)

	res := env.publish(t, event.ObjectCustom, "baseline_done", ts)
	require.True(t, res.Published)
	require.Len(t, res.Cascaded, 1)

	recent := env.recent(t, "study1")
	require.Len(t, recent, 2)
	require.True(t, recent["custom:baseline_done"].Timestamp.Equal(ts))
	followup := recent["custom:followup"]
	require.True(t, followup.Timestamp.Equal(ts.AddDate(0, 0, 7)))
	require.Equal(t, event.UpdateMutable, followup.UpdateType)

	// Moving the origin moves the derived event.
	later := ts.Add(48 * time.Hour)
	env.publish(t, event.ObjectCustom, "baseline_done", later)
	recent = env.recent(t, "study1")
	require.True(t, recent["custom:followup"].Timestamp.Equal(later.AddDate(0, 0, 7)))
	require.Equal(t, 2, env.historyTotal(t, "study1", "custom:followup"))
}

func TestIntegration_UpdatePolicies(t *testing.T) {
	env := newTestEnv(t)
	t1 := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	t2 := t1.Add(time.Hour)

	t.Run("immutable keeps first", func(t *testing.T) {
		require.True(t, env.publish(t, event.ObjectCustom, "consented", t1).Published)
		require.False(t, env.publish(t, event.ObjectCustom, "consented", t2).Published)
		require.True(t, env.recent(t, "study1")["custom:consented"].Timestamp.Equal(t1))
		require.Equal(t, 1, env.historyTotal(t, "study1", "custom:consented"))
	})

	t.Run("mutable same timestamp is a no-op", func(t *testing.T) {
		require.True(t, env.publish(t, event.ObjectSession, "guid1", t1).Published)
		require.False(t, env.publish(t, event.ObjectSession, "guid1", t1).Published)
		require.True(t, env.publish(t, event.ObjectSession, "guid1", t0).Published)
		require.True(t, env.recent(t, "study1")["session:guid1"].Timestamp.Equal(t0))
		require.Equal(t, 2, env.historyTotal(t, "study1", "session:guid1"))
	})

	t.Run("future only moves forward", func(t *testing.T) {
		require.True(t, env.publish(t, event.ObjectCustom, "reminder", t1).Published)
		require.False(t, env.publish(t, event.ObjectCustom, "reminder", t1).Published)
		require.False(t, env.publish(t, event.ObjectCustom, "reminder", t0).Published)
		require.True(t, env.publish(t, event.ObjectCustom, "reminder", t2).Published)
		require.True(t, env.recent(t, "study1")["custom:reminder"].Timestamp.Equal(t2))
	})

	t.Run("enrollment is never replaced", func(t *testing.T) {
		require.True(t, env.publish(t, event.ObjectEnrollment, "", t1).Published)
		later := t1.Add(48 * time.Hour)
		require.False(t, env.publish(t, event.ObjectEnrollment, "", later).Published)
		require.True(t, env.recent(t, "study1")["enrollment"].Timestamp.Equal(t1))
		require.Equal(t, 1, env.historyTotal(t, "study1", "enrollment"))
	})

	t.Run("undeclared custom event never persists", func(t *testing.T) {
		_, err := env.eventSvc.Publish(context.Background(), event.Request{
			AppID: "app1", UserID: "user1", StudyID: "study1",
			ObjectType: event.ObjectCustom, ObjectID: "nope", Timestamp: t1,
		})
		require.ErrorIs(t, err, event.ErrInvalidEvent)
		_, ok := env.recent(t, "study1")["custom:nope"]
		require.False(t, ok)
	})
}

func TestIntegration_GlobalEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ts := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

	res := env.publish(t, event.ObjectEnrollment, "", ts)
	require.True(t, res.Published)
	require.Len(t, res.Cascaded, 1)
	require.Empty(t, res.Cascaded[0].StudyID)

	env.publish(t, event.ObjectEnrollment, "", ts)

	_, err := env.eventSvc.Publish(context.Background(), event.Request{
		AppID: "app1", UserID: "user1", StudyID: "study2",
		ObjectType: event.ObjectEnrollment, Timestamp: ts.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	global := env.recent(t, "")
	require.Len(t, global, 1)
	require.True(t, global["enrollment"].Timestamp.Equal(ts))
	require.Equal(t, 1, env.historyTotal(t, "", "enrollment"))
}

func TestIntegration_HistoryAndDelete(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// baseline_done also feeds the followup rule; only its own history is paged.
	for i := 0; i < 12; i++ {
		env.publish(t, event.ObjectCustom, "baseline_done", base.Add(time.Duration(i)*time.Hour))
	}

	page, err := env.eventSvc.GetHistory(ctx, event.HistoryQuery{
		AppID: "app1", UserID: "user1", StudyID: "study1", EventID: "custom:baseline_done",
		Offset: 5, PageSize: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 12, page.Total)
	require.Len(t, page.Items, 5)
	require.Equal(t, int64(7), page.Items[0].Revision)
	require.True(t, page.Items[0].Timestamp.Equal(base.Add(6*time.Hour)))

	_, err = env.eventSvc.GetHistory(ctx, event.HistoryQuery{
		AppID: "app1", UserID: "user1", StudyID: "study1", EventID: "custom:baseline_done", Offset: -1,
	})
	require.ErrorIs(t, err, event.ErrInvalidEvent)

	deleted, err := env.eventSvc.DeleteCustomEvent(ctx, event.Request{
		AppID: "app1", UserID: "user1", StudyID: "study1", ObjectType: event.ObjectCustom, ObjectID: "baseline_done",
	})
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, 0, env.historyTotal(t, "study1", "custom:baseline_done"))

	res := env.publish(t, event.ObjectCustom, "baseline_done", base)
	require.Equal(t, int64(1), res.Event.Revision)

	entries, err := env.activitySvc.GetRecentActivity(ctx, "app1", activity.ListActivityOptions{
		ActivityType: ptr(activity.TypeEventDeleted),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestIntegration_ConcurrentPublishes(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.eventSvc.Publish(context.Background(), event.Request{
				AppID: "app1", UserID: "user1", StudyID: "study1",
				ObjectType: event.ObjectAssessment, ObjectID: "a1",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	page, err := env.eventSvc.GetHistory(context.Background(), event.HistoryQuery{
		AppID: "app1", UserID: "user1", StudyID: "study1", EventID: "assessment:a1", PageSize: 100,
	})
	require.NoError(t, err)
	require.Equal(t, 8, page.Total)
	for i, item := range page.Items {
		require.Equal(t, int64(8-i), item.Revision)
	}
}

func TestIntegration_VersionLineage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	t0 := env.now

	first, err := env.versionSvc.Create(ctx, participant.Version{AppID: "app1", HealthCode: "hc1", DataGroups: []string{"a"}})
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, 1, first.Version.ParticipantVersion)
	require.True(t, first.Version.CreatedOn.Equal(t0))

	env.now = t0.Add(time.Hour)
	again, err := env.versionSvc.Create(ctx, participant.Version{AppID: "app1", HealthCode: "hc1", DataGroups: []string{"a"}})
	require.NoError(t, err)
	require.False(t, again.Created)

	latest, err := env.versionSvc.GetLatest(ctx, "app1", "hc1")
	require.NoError(t, err)
	require.Equal(t, 1, latest.ParticipantVersion)

	env.now = t0.Add(2 * time.Hour)
	second, err := env.versionSvc.Create(ctx, participant.Version{AppID: "app1", HealthCode: "hc1", DataGroups: []string{"b", "a"}})
	require.NoError(t, err)
	require.True(t, second.Created)
	require.Equal(t, 2, second.Version.ParticipantVersion)
	require.True(t, second.Version.CreatedOn.Equal(t0))
	require.True(t, second.Version.ModifiedOn.Equal(env.now))

	stored, err := env.versionSvc.Get(ctx, "app1", "hc1", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, stored.DataGroups)
	require.True(t, stored.CreatedOn.Equal(t0))

	// Reordering data groups is not a change.
	same, err := env.versionSvc.Create(ctx, participant.Version{AppID: "app1", HealthCode: "hc1", DataGroups: []string{"a", "b"}})
	require.NoError(t, err)
	require.False(t, same.Created)

	third, err := env.versionSvc.Create(ctx, participant.Version{
		AppID: "app1", HealthCode: "hc1", DataGroups: []string{"a", "b"}, SharingScope: participant.SharingNone,
	})
	require.NoError(t, err)
	require.Equal(t, 3, third.Version.ParticipantVersion)

	versions, err := env.versionSvc.List(ctx, "app1", "hc1")
	require.NoError(t, err)
	require.Len(t, versions, 3)

	n, err := env.versionSvc.DeleteAll(ctx, "app1", "hc1")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	_, err = env.versionSvc.GetLatest(ctx, "app1", "hc1")
	require.ErrorIs(t, err, participant.ErrVersionNotFound)
}

func TestIntegration_ConcurrentVersions(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.versionSvc.Create(context.Background(), participant.Version{
				AppID: "app1", HealthCode: "hc2", DataGroups: []string{fmt.Sprintf("g%d", i)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	versions, err := env.versionSvc.List(context.Background(), "app1", "hc2")
	require.NoError(t, err)
	require.Len(t, versions, 6)
	for i, v := range versions {
		require.Equal(t, i+1, v.ParticipantVersion)
	}
}

func ptr[T any](v T) *T {
	return &v
}
