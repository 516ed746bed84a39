// Package store provides local data persistence interfaces and
// implementations.
package store

import (
	"context"

	"warrant-sniper/internal/models"
)

// DataStore defines the interface for client-local persistence:
// favorites snapshots and the login-attempt state. Both are single
// logical values replaced on every mutation.
type DataStore interface {
	// Favorites
	ToggleFavorite(ctx context.Context, w models.Warrant) (added bool, err error)
	ListFavorites(ctx context.Context) ([]models.Warrant, error)
	IsFavorite(ctx context.Context, id string) (bool, error)
	CountFavorites(ctx context.Context) (int, error)

	// Last completed search result, kept so follow-up commands can
	// reference warrants from the previous run.
	SaveLastResult(ctx context.Context, result models.SearchResult) error
	GetLastResult(ctx context.Context) (*models.SearchResult, error)

	// Login attempt state
	GetLoginState(ctx context.Context) (models.LoginAttemptState, error)
	SaveLoginState(ctx context.Context, state models.LoginAttemptState) error
	ResetLoginState(ctx context.Context) error

	// Close releases the store.
	Close() error
}
