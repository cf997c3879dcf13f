package store

import (
	"context"
	"errors"

	"github.com/maltedev/price-tracker/internal/models"
)

var (
	ErrNotFound   = errors.New("item not found")
	ErrInvalidURL = errors.New("invalid product url")
)

// ItemStore persists tracked items. Writes must be atomic: a crash
// mid-write must not corrupt existing records.
type ItemStore interface {
	List(ctx context.Context) ([]*models.TrackedItem, error)
	Get(ctx context.Context, id string) (*models.TrackedItem, error)
	Create(ctx context.Context, item *models.TrackedItem) error
	UpdateObserved(ctx context.Context, id string, update models.ObservedUpdate) error
	SetTargetPrice(ctx context.Context, id string, target float64) error
	Delete(ctx context.Context, id string) error

	// Reload re-reads durable storage, tolerating concurrent external
	// edits. Called before each polling pass.
	Reload(ctx context.Context) error

	Close() error
}
