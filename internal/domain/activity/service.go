package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ErrInvalidInput indicates invalid activity input.
var ErrInvalidInput = errors.New("invalid activity input")

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, appID string, entry *ActivityEntry) error {
	if entry == nil || appID == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, appID, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists activity entries with filtering, newest first.
func (s *Service) GetRecentActivity(ctx context.Context, appID string, opts ListActivityOptions) ([]ActivityEntry, error) {
	if appID == "" || opts.Offset < 0 || opts.Limit < 0 {
		return nil, ErrInvalidInput
	}
	if opts.Limit == 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	return s.repo.List(ctx, appID, opts)
}
