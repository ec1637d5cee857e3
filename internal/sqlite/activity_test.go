package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	userID := "u1"
	entry1 := &activity.ActivityEntry{
		UserID:       &userID,
		ActivityType: activity.TypeEventPublished,
		Summary:      "published event enrollment",
		Details:      `{"revision":1}`,
	}
	entry2 := &activity.ActivityEntry{
		UserID:       &userID,
		ActivityType: activity.TypeEventDeleted,
		Summary:      "deleted event custom:x",
	}

	require.NoError(t, repo.Log(ctx, "app1", entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, "app1", entry2))
	require.NotZero(t, entry1.ID)
	require.Equal(t, "app1", entry1.AppID)

	entries, err := repo.List(ctx, "app1", activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, "u1", *entries[1].UserID)
	require.Nil(t, entries[1].StudyID)
}

func TestActivityRepository_FiltersAndAppIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	userID := "u1"
	studyID := "s1"
	subject := "custom:baseline"
	require.NoError(t, repo.Log(ctx, "app1", &activity.ActivityEntry{
		UserID:       &userID,
		StudyID:      &studyID,
		Subject:      &subject,
		ActivityType: activity.TypeEventPublished,
		Summary:      "published event custom:baseline",
	}))
	require.NoError(t, repo.Log(ctx, "app1", &activity.ActivityEntry{
		ActivityType: activity.TypeAppConfigured,
		Summary:      "updated app app1",
	}))

	activityType := activity.TypeEventPublished
	entries, err := repo.List(ctx, "app1", activity.ListActivityOptions{
		UserID:       &userID,
		StudyID:      &studyID,
		Subject:      &subject,
		ActivityType: &activityType,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, "app1", activity.ListActivityOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, "app2", activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
