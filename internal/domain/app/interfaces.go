package app

import "context"

// Repository provides persistence for app configuration.
type Repository interface {
	Create(ctx context.Context, a *App) error
	Get(ctx context.Context, id string) (*App, error)
	Update(ctx context.Context, a *App) error
}
