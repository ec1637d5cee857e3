package event_test

import (
	"testing"
	"time"

	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/stretchr/testify/require"
)

func testApp() *app.App {
	return &app.App{
		ID:   "app1",
		Name: "Test App",
		CustomEvents: map[string]app.UpdateType{
			"baseline_done": app.UpdateMutable,
			"consented":     app.UpdateImmutable,
		},
		AutomaticCustomEvents: map[string]string{
			"custom:followup": "baseline_done:P7D",
		},
	}
}

func TestRequestResolve_Custom(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ts := now.Add(-time.Hour)

	ev := event.Request{
		AppID:      "app1",
		StudyID:    "study1",
		UserID:     "user1",
		ObjectType: event.ObjectCustom,
		ObjectID:   "consented",
		Timestamp:  ts,
	}.Resolve(testApp(), now)

	require.Equal(t, "custom:consented", ev.EventID)
	require.Equal(t, event.UpdateImmutable, ev.UpdateType)
	require.Equal(t, now, ev.CreatedOn)
	require.Equal(t, ts, ev.Timestamp)
	require.NoError(t, event.Validate(ev))
}

func TestRequestResolve_CustomPrefixTolerated(t *testing.T) {
	ev := event.Request{
		AppID:      "app1",
		StudyID:    "study1",
		UserID:     "user1",
		ObjectType: event.ObjectCustom,
		ObjectID:   "custom:baseline_done",
		Timestamp:  time.Now(),
	}.Resolve(testApp(), time.Now())

	require.Equal(t, "custom:baseline_done", ev.EventID)
	require.Equal(t, "baseline_done", ev.ObjectID)
	require.Equal(t, event.UpdateMutable, ev.UpdateType)
}

func TestRequestResolve_AutomaticKeyIsDeclared(t *testing.T) {
	ev := event.Request{
		AppID:      "app1",
		UserID:     "user1",
		ObjectType: event.ObjectCustom,
		ObjectID:   "followup",
		Timestamp:  time.Now(),
	}.Resolve(testApp(), time.Now())

	require.Equal(t, "custom:followup", ev.EventID)
	require.Equal(t, event.UpdateMutable, ev.UpdateType)
}

func TestRequestResolve_UndeclaredCustomFailsValidation(t *testing.T) {
	ev := event.Request{
		AppID:      "app1",
		StudyID:    "study1",
		UserID:     "user1",
		ObjectType: event.ObjectCustom,
		ObjectID:   "not_declared",
		Timestamp:  time.Now(),
	}.Resolve(testApp(), time.Now())

	require.Empty(t, ev.EventID)
	require.ErrorIs(t, event.Validate(ev), event.ErrInvalidEvent)
}

func TestRequestResolve_BuiltInTypes(t *testing.T) {
	a := testApp()
	now := time.Now()

	enrollment := event.Request{AppID: "app1", UserID: "u", ObjectType: event.ObjectEnrollment, ObjectID: "ignored", Timestamp: now}.Resolve(a, now)
	require.Equal(t, "enrollment", enrollment.EventID)
	require.Equal(t, event.UpdateImmutable, enrollment.UpdateType)

	session := event.Request{AppID: "app1", UserID: "u", ObjectType: event.ObjectSession, ObjectID: "s1", Timestamp: now}.Resolve(a, now)
	require.Equal(t, "session:s1", session.EventID)
	require.Equal(t, event.UpdateMutable, session.UpdateType)

	install := event.Request{AppID: "app1", UserID: "u", ObjectType: event.ObjectInstallLinkSent, Timestamp: now}.Resolve(a, now)
	require.Equal(t, "install_link_sent", install.EventID)
	require.Equal(t, event.UpdateFutureOnly, install.UpdateType)

	for _, objectType := range []event.ObjectType{event.ObjectCreatedOn, event.ObjectStudyStartDate} {
		ev := event.Request{AppID: "app1", UserID: "u", ObjectType: objectType, Timestamp: now}.Resolve(a, now)
		require.Equal(t, event.UpdateImmutable, ev.UpdateType, objectType)
	}
}

func TestValidate(t *testing.T) {
	now := time.Now()
	valid := func() *event.StudyActivityEvent {
		return &event.StudyActivityEvent{
			AppID:      "app1",
			UserID:     "user1",
			StudyID:    "study1",
			EventID:    "session:s1",
			ObjectType: event.ObjectSession,
			ObjectID:   "s1",
			Timestamp:  now,
			UpdateType: event.UpdateMutable,
		}
	}
	require.NoError(t, event.Validate(valid()))

	ev := valid()
	ev.ObjectID = ""
	require.ErrorIs(t, event.Validate(ev), event.ErrInvalidEvent)

	ev = valid()
	ev.Timestamp = time.Time{}
	require.ErrorIs(t, event.Validate(ev), event.ErrInvalidEvent)

	ev = valid()
	ev.ClientTimeZone = "Not/AZone"
	require.ErrorIs(t, event.Validate(ev), event.ErrInvalidEvent)

	ev = valid()
	ev.ClientTimeZone = "UTC"
	require.NoError(t, event.Validate(ev))

	ev = valid()
	ev.ObjectType = event.ObjectCustom
	ev.ObjectID = "x"
	ev.EventID = "x"
	require.ErrorIs(t, event.Validate(ev), event.ErrInvalidEvent)

	require.ErrorIs(t, event.Validate(nil), event.ErrInvalidEvent)
}
