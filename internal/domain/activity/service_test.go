package activity_test

import (
	"context"
	"testing"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/rpggio/studyevents/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	_ app.ActivityLogger         = (*activity.Service)(nil)
	_ event.ActivityLogger       = (*activity.Service)(nil)
	_ participant.ActivityLogger = (*activity.Service)(nil)
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()
	appID := "app1"
	userID := "user1"

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		UserID:       &userID,
		ActivityType: activity.TypeEventPublished,
		Summary:      "published",
	}

	repo.On("Log", ctx, appID, entry).Return(nil)
	repo.On("List", ctx, appID, activity.ListActivityOptions{UserID: &userID, Limit: 50}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, appID, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, appID, activity.ListActivityOptions{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_LimitIsCapped(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("List", ctx, "app1", activity.ListActivityOptions{Limit: 500}).Return([]activity.ActivityEntry{}, nil)

	svc := activity.NewService(repo, nil)
	_, err := svc.GetRecentActivity(ctx, "app1", activity.ListActivityOptions{Limit: 10000})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestActivityService_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)

	require.ErrorIs(t, svc.LogActivity(ctx, "app1", nil), activity.ErrInvalidInput)
	_, err := svc.GetRecentActivity(ctx, "app1", activity.ListActivityOptions{Offset: -1})
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestActivityService_LogsForAppService(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("Log", ctx, "app1", mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeAppConfigured && !e.CreatedAt.IsZero()
	})).Return(nil).Once()

	apps := &mocks.AppRepository{}
	apps.On("Create", ctx, mock.Anything).Return(nil).Once()

	svc := app.NewService(apps, activity.NewService(repo, nil), nil)
	_, err := svc.Create(ctx, app.CreateRequest{ID: "app1", Name: "Study App"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
	apps.AssertExpectations(t)
}
