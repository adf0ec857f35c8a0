// Package memory is an in-process Repository used by tests and local
// development. It honors the same compare-and-swap contract as the
// postgres implementation.
package memory

import (
	"context"
	"sort"
	"sync"

	"dreampool/internal/engine"
	"dreampool/internal/models"
)

type Store struct {
	mu        sync.RWMutex
	campaigns map[string]models.Campaign
}

func NewStore() *Store {
	return &Store{campaigns: make(map[string]models.Campaign)}
}

func (s *Store) Create(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.campaigns[campaign.ID]; exists {
		return engine.ErrConflict
	}
	campaign.Version = 1
	s.campaigns[campaign.ID] = clone(*campaign)
	return nil
}

func (s *Store) Load(_ context.Context, campaignID string) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.campaigns[campaignID]
	if !exists {
		return nil, engine.ErrNotFound
	}
	copied := clone(stored)
	return &copied, nil
}

// Save applies the optimistic concurrency check: the caller's Version
// must match the stored one, then both advance.
func (s *Store) Save(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.campaigns[campaign.ID]
	if !exists {
		return engine.ErrNotFound
	}
	if stored.Version != campaign.Version {
		return engine.ErrConflict
	}
	campaign.Version++
	s.campaigns[campaign.ID] = clone(*campaign)
	return nil
}

func (s *Store) List(_ context.Context) ([]models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(models.Campaign) bool { return true }), nil
}

func (s *Store) ListOpen(_ context.Context) ([]models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(c models.Campaign) bool { return !c.Status.Terminal() }), nil
}

func (s *Store) snapshot(keep func(models.Campaign) bool) []models.Campaign {
	items := make([]models.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		if keep(campaign) {
			items = append(items, clone(campaign))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// clone deep-copies the ledger, refunds and settlement so callers can
// never mutate stored state outside Save.
func clone(campaign models.Campaign) models.Campaign {
	copied := campaign
	copied.Ledger = append([]models.Contribution(nil), campaign.Ledger...)
	copied.Refunds = append([]models.Refund(nil), campaign.Refunds...)
	if campaign.Settlement != nil {
		settlement := *campaign.Settlement
		if campaign.Settlement.SelectedContributorID != nil {
			winner := *campaign.Settlement.SelectedContributorID
			settlement.SelectedContributorID = &winner
		}
		copied.Settlement = &settlement
	}
	return copied
}
