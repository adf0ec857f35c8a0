package engine

import (
	"context"
	"time"

	"dreampool/internal/models"
)

// Repository is the engine's storage contract. Implementations must
// provide per-campaign atomic compare-and-swap semantics: Save checks
// the campaign's Version against the stored one and fails with
// ErrConflict on a lost update, bumping Version on success.
type Repository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	// Load returns the campaign with its full ledger, refunds and
	// settlement, or ErrNotFound.
	Load(ctx context.Context, campaignID string) (*models.Campaign, error)
	Save(ctx context.Context, campaign *models.Campaign) error
	List(ctx context.Context) ([]models.Campaign, error)
	// ListOpen returns campaigns whose status is not terminal, for
	// the deadline sweeper.
	ListOpen(ctx context.Context) ([]models.Campaign, error)
}

// Clock is injected so deadline evaluation is deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// RandSource feeds the draw. NextUniform must return a value in [0,1);
// sources are seedable so draws are reproducible for audit.
type RandSource interface {
	NextUniform() float64
}
