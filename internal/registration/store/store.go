// Package store persists registration records and serves their read models.
//
// Backends report infrastructure facts through sentinel errors; Gateway turns
// them into the best-effort boolean API the registration service consumes.
package store

import (
	"context"
	"time"

	"checkpoint/internal/registration/models"
)

// Backend is a registration document store.
//
// Insert must fail with sentinel.ErrConflict when the id already exists and
// never overwrite. Get and Delete return sentinel.ErrNotFound for unknown ids.
type Backend interface {
	Insert(ctx context.Context, r *models.Registration) error
	Get(ctx context.Context, id string) (*models.Registration, error)
	List(ctx context.Context) ([]*models.Registration, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q models.Query) ([]*models.Registration, error)
	// Stats computes collection statistics; registrations at or after
	// todayStart count towards the today counters.
	Stats(ctx context.Context, todayStart time.Time) (models.Stats, error)
}
