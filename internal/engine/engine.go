package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"dreampool/internal/countdown"
	"dreampool/internal/models"
)

// Engine drives the campaign lifecycle: it serializes all mutations of
// one campaign behind a per-campaign lock, applies contributions to the
// ledger, evaluates deadline transitions, runs the draw and writes the
// settlement. It never retries and never reads ambient time or
// randomness; Conflict and Busy are the caller's signal to retry with
// fresh state.
type Engine struct {
	repo     Repository
	clock    Clock
	schedule Schedule
	rand     RandSource
	lockWait time.Duration

	mu    sync.Mutex
	locks map[string]*campaignLock
}

// campaignLock is reference counted so the map only holds entries for
// campaigns with an operation in flight; the entry is evicted once the
// last holder or waiter lets go.
type campaignLock struct {
	sem  *semaphore.Weighted
	refs int
}

const defaultLockWait = 3 * time.Second

func New(repo Repository, clock Clock, schedule Schedule, src RandSource, lockWait time.Duration) (*Engine, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &Engine{
		repo:     repo,
		clock:    clock,
		schedule: schedule,
		rand:     src,
		lockWait: lockWait,
		locks:    make(map[string]*campaignLock),
	}, nil
}

// acquire takes the campaign's lock with a bounded wait. Contended
// campaigns answer ErrBusy instead of deadlocking the caller.
func (e *Engine) acquire(ctx context.Context, campaignID string) (func(), error) {
	e.mu.Lock()
	lock, ok := e.locks[campaignID]
	if !ok {
		lock = &campaignLock{sem: semaphore.NewWeighted(1)}
		e.locks[campaignID] = lock
	}
	lock.refs++
	e.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()
	if err := lock.sem.Acquire(waitCtx, 1); err != nil {
		e.unref(campaignID, lock)
		return nil, ErrBusy
	}
	return func() {
		lock.sem.Release(1)
		e.unref(campaignID, lock)
	}, nil
}

func (e *Engine) unref(campaignID string, lock *campaignLock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(e.locks, campaignID)
	}
}

// CreateCampaign registers a new campaign in Funding state.
func (e *Engine) CreateCampaign(ctx context.Context, creatorID int, title, story, imageURL string, targetCents int64, deadline time.Time) (*models.Campaign, error) {
	if targetCents <= 0 {
		return nil, ErrInvalidAmount
	}
	now := e.clock.Now()
	campaign := &models.Campaign{
		ID:          uuid.NewString(),
		CreatorID:   creatorID,
		Title:       title,
		Story:       story,
		ImageURL:    imageURL,
		TargetCents: targetCents,
		Deadline:    deadline,
		Status:      models.StatusFunding,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.repo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// RecordContribution appends one ledger entry and returns the updated
// campaign with the recomputed share set. A contribution that lands
// after the deadline on an under-funded campaign fails the campaign
// and is rejected.
func (e *Engine) RecordContribution(ctx context.Context, campaignID string, contributorID int, amountCents int64) (*models.Campaign, []models.ParticipantShare, error) {
	if amountCents <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	release, err := e.acquire(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	campaign, err := e.repo.Load(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if campaign.Status != models.StatusFunding {
		return nil, nil, ErrCampaignNotFunding
	}

	now := e.clock.Now()
	if countdown.Evaluate(campaign.Deadline, now).IsExpired {
		e.resolveDeadline(campaign, now)
		if err := e.repo.Save(ctx, campaign); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrCampaignNotFunding
	}

	isNew := true
	for _, entry := range campaign.Ledger {
		if entry.ContributorID == contributorID {
			isNew = false
			break
		}
	}

	campaign.Ledger = append(campaign.Ledger, models.Contribution{
		ID:            uuid.NewString(),
		CampaignID:    campaign.ID,
		ContributorID: contributorID,
		AmountCents:   amountCents,
		CreatedAt:     now,
	})
	campaign.CurrentCents += amountCents
	if isNew {
		campaign.Participants++
	}

	if campaign.CurrentCents >= campaign.TargetCents {
		if err := transition(campaign, models.StatusReadyToDraw); err != nil {
			return nil, nil, err
		}
	}
	campaign.UpdatedAt = now

	if err := e.repo.Save(ctx, campaign); err != nil {
		return nil, nil, err
	}
	return campaign, ComputeShares(campaign.Ledger, campaign.CurrentCents), nil
}

// Tick evaluates deadline-triggered transitions for one campaign. The
// engine never runs its own clock; external schedulers call this.
func (e *Engine) Tick(ctx context.Context, campaignID string) (*models.Campaign, error) {
	release, err := e.acquire(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer release()

	campaign, err := e.repo.Load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.StatusFunding {
		return campaign, nil
	}

	now := e.clock.Now()
	if !countdown.Evaluate(campaign.Deadline, now).IsExpired {
		return campaign, nil
	}

	e.resolveDeadline(campaign, now)
	if err := e.repo.Save(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// resolveDeadline applies the expired-deadline policy to a Funding
// campaign: under-funded campaigns fail with a full refund per
// contributor, funded ones proceed to the draw.
func (e *Engine) resolveDeadline(campaign *models.Campaign, now time.Time) {
	if campaign.CurrentCents >= campaign.TargetCents {
		campaign.Status = models.StatusReadyToDraw
	} else {
		campaign.Status = models.StatusFailed
		campaign.Refunds = fullRefunds(campaign, nil)
	}
	campaign.UpdatedAt = now
}

// Draw runs the weighted selection and settlement for a ReadyToDraw
// campaign using the engine's randomness source.
func (e *Engine) Draw(ctx context.Context, campaignID string) (*models.Campaign, error) {
	return e.DrawWith(ctx, campaignID, e.rand)
}

// DrawWith is Draw with a caller-supplied randomness source, so a
// draw can be replayed from a recorded seed. Drawing is transient: the
// campaign is persisted only once, already Settled, with its
// settlement attached. A second draw fails with ErrAlreadyDrawn and
// leaves the existing settlement untouched.
func (e *Engine) DrawWith(ctx context.Context, campaignID string, src RandSource) (*models.Campaign, error) {
	release, err := e.acquire(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer release()

	campaign, err := e.repo.Load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Settlement != nil {
		return nil, ErrAlreadyDrawn
	}
	if err := transition(campaign, models.StatusDrawing); err != nil {
		return nil, err
	}

	shares := ComputeShares(campaign.Ledger, campaign.CurrentCents)
	winner, err := SelectWinner(shares, src)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	alloc := e.schedule.Allocate(campaign.CurrentCents)
	campaign.Settlement = &models.Settlement{
		ID:                     uuid.NewString(),
		CampaignID:             campaign.ID,
		SelectedContributorID:  &winner,
		TotalCents:             alloc.TotalCents,
		PlatformFeeCents:       alloc.PlatformFeeCents,
		CreatorCommissionCents: alloc.CreatorCommissionCents,
		ShareBonusCents:        alloc.ShareBonusCents,
		CharityCents:           alloc.CharityCents,
		WinnerPayoutCents:      alloc.WinnerPayoutCents,
		DrawDate:               now,
		SettledAt:              now,
	}
	campaign.Refunds = fullRefunds(campaign, &winner)

	if err := transition(campaign, models.StatusSettled); err != nil {
		return nil, err
	}
	campaign.UpdatedAt = now

	if err := e.repo.Save(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Complete archives a settled campaign. Bookkeeping only, no
// financial effect.
func (e *Engine) Complete(ctx context.Context, campaignID string) (*models.Campaign, error) {
	release, err := e.acquire(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	defer release()

	campaign, err := e.repo.Load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := transition(campaign, models.StatusCompleted); err != nil {
		return nil, err
	}
	campaign.UpdatedAt = e.clock.Now()

	if err := e.repo.Save(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// allowed lists every legal transition; everything else is rejected.
var allowed = map[models.CampaignStatus][]models.CampaignStatus{
	models.StatusFunding:     {models.StatusReadyToDraw, models.StatusFailed},
	models.StatusReadyToDraw: {models.StatusDrawing},
	models.StatusDrawing:     {models.StatusSettled},
	models.StatusSettled:     {models.StatusCompleted},
}

func transition(campaign *models.Campaign, to models.CampaignStatus) error {
	for _, next := range allowed[campaign.Status] {
		if next == to {
			campaign.Status = to
			return nil
		}
	}
	return &TransitionError{From: campaign.Status, To: to}
}

// fullRefunds owes every contributor (except the winner, if any) their
// aggregate contribution back.
func fullRefunds(campaign *models.Campaign, winner *int) []models.Refund {
	shares := ComputeShares(campaign.Ledger, campaign.CurrentCents)
	refunds := make([]models.Refund, 0, len(shares))
	for _, share := range shares {
		if winner != nil && share.ContributorID == *winner {
			continue
		}
		refunds = append(refunds, models.Refund{
			CampaignID:    campaign.ID,
			ContributorID: share.ContributorID,
			AmountCents:   share.AmountCents,
		})
	}
	return refunds
}
