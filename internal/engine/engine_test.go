package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreampool/internal/engine"
	"dreampool/internal/models"
	"dreampool/internal/repository/memory"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedSource struct{ value float64 }

func (f fixedSource) NextUniform() float64 { return f.value }

func newTestEngine(t *testing.T) (*engine.Engine, *memory.Store, *stubClock) {
	t.Helper()
	store := memory.NewStore()
	clock := &stubClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	eng, err := engine.New(store, clock, engine.DefaultSchedule(),
		engine.NewSeededSource(1), time.Second)
	require.NoError(t, err)
	return eng, store, clock
}

func fundingCampaign(t *testing.T, eng *engine.Engine, clock *stubClock, targetCents int64) *models.Campaign {
	t.Helper()
	campaign, err := eng.CreateCampaign(context.Background(), 99,
		"Sail around the world", "A dream of open water since childhood.",
		"", targetCents, clock.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	return campaign
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	schedule, _ := engine.NewSchedule(90, 5, 1, 3, 1)
	schedule.PlatformFeePercent = schedule.PlatformFeePercent.Add(schedule.WinnerPercent)

	_, err := engine.New(memory.NewStore(), &stubClock{now: time.Now()},
		schedule, engine.NewSeededSource(1), time.Second)
	assert.ErrorIs(t, err, engine.ErrInvalidSchedule)
}

func TestFundingCompletesBeforeDeadline(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	updated, shares, err := eng.RecordContribution(ctx, campaign.ID, 1, 600_00)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFunding, updated.Status)
	assert.Equal(t, int64(600_00), updated.CurrentCents)
	assert.Equal(t, 1, updated.Participants)

	updated, shares, err = eng.RecordContribution(ctx, campaign.ID, 2, 400_00)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyToDraw, updated.Status)
	assert.Equal(t, int64(1000_00), updated.CurrentCents)
	assert.Equal(t, 2, updated.Participants)
	assert.Equal(t, updated.CurrentCents, engine.LedgerTotal(updated.Ledger))

	require.Len(t, shares, 2)
	assert.InDelta(t, 60.0, shares[0].SharePercent, 1e-9)
	assert.InDelta(t, 40.0, shares[1].SharePercent, 1e-9)
}

func TestContributionRejectedWhenNotFunding(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 500_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 500_00)
	require.NoError(t, err)

	// Campaign is ReadyToDraw now; late contributions bounce.
	_, _, err = eng.RecordContribution(ctx, campaign.ID, 2, 100_00)
	assert.ErrorIs(t, err, engine.ErrCampaignNotFunding)
}

func TestContributionValidation(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 0)
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)

	_, _, err = eng.RecordContribution(ctx, campaign.ID, 1, -5)
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)

	_, _, err = eng.RecordContribution(ctx, "no-such-campaign", 1, 100)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestTickFailsUnderFundedExpiredCampaign(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 400_00)
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)

	updated, err := eng.Tick(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, updated.Status)

	// Full refund policy: every contributor gets their aggregate back.
	require.Len(t, updated.Refunds, 1)
	assert.Equal(t, 1, updated.Refunds[0].ContributorID)
	assert.Equal(t, int64(400_00), updated.Refunds[0].AmountCents)
}

func TestTickIsNoOpBeforeDeadline(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	updated, err := eng.Tick(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFunding, updated.Status)
}

func TestLateContributionFailsExpiredCampaign(t *testing.T) {
	eng, store, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 100_00)
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)

	_, _, err = eng.RecordContribution(ctx, campaign.ID, 2, 900_00)
	assert.ErrorIs(t, err, engine.ErrCampaignNotFunding)

	stored, err := store.Load(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Equal(t, int64(100_00), stored.CurrentCents)
}

func TestDrawSettlesCampaign(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 600_00)
	require.NoError(t, err)
	_, _, err = eng.RecordContribution(ctx, campaign.ID, 2, 400_00)
	require.NoError(t, err)

	// Uniform 0.1 lands in contributor 1's 60% band.
	settled, err := eng.DrawWith(ctx, campaign.ID, fixedSource{0.1})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, settled.Status)

	settlement := settled.Settlement
	require.NotNil(t, settlement)
	require.NotNil(t, settlement.SelectedContributorID)
	assert.Equal(t, 1, *settlement.SelectedContributorID)
	assert.Equal(t, int64(1000_00), settlement.TotalCents)
	assert.Equal(t, settlement.TotalCents,
		settlement.WinnerPayoutCents+settlement.CharityCents+
			settlement.CreatorCommissionCents+settlement.ShareBonusCents+
			settlement.PlatformFeeCents)
	assert.Equal(t, clock.Now(), settlement.DrawDate)
	assert.Equal(t, clock.Now(), settlement.SettledAt)

	// Non-winners are owed their full contribution back.
	require.Len(t, settled.Refunds, 1)
	assert.Equal(t, 2, settled.Refunds[0].ContributorID)
	assert.Equal(t, int64(400_00), settled.Refunds[0].AmountCents)
}

func TestDrawTwiceFailsAndKeepsSettlement(t *testing.T) {
	eng, store, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 1000_00)
	require.NoError(t, err)

	settled, err := eng.Draw(ctx, campaign.ID)
	require.NoError(t, err)
	firstSettlement := *settled.Settlement

	_, err = eng.Draw(ctx, campaign.ID)
	assert.ErrorIs(t, err, engine.ErrAlreadyDrawn)

	stored, err := store.Load(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Settlement)
	assert.Equal(t, firstSettlement, *stored.Settlement)
	assert.Equal(t, models.StatusSettled, stored.Status)
}

func TestInvalidTransitions(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	// Draw before the target is reached.
	_, err := eng.Draw(ctx, campaign.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	// Complete before any settlement exists.
	_, err = eng.Complete(ctx, campaign.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestCompleteAfterSettlement(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_00)

	_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 1000_00)
	require.NoError(t, err)
	_, err = eng.Draw(ctx, campaign.ID)
	require.NoError(t, err)

	completed, err := eng.Complete(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	// Terminal: nothing moves a completed campaign.
	_, err = eng.Complete(ctx, campaign.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestConcurrentContributionsLoseNoUpdate(t *testing.T) {
	eng, store, clock := newTestEngine(t)
	ctx := context.Background()
	campaign := fundingCampaign(t, eng, clock, 1000_000_00)

	const callers = 10
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(contributor int) {
			defer wg.Done()
			_, _, err := eng.RecordContribution(ctx, campaign.ID, contributor, 10_00)
			assert.NoError(t, err)
		}(i + 1)
	}
	wg.Wait()

	stored, err := store.Load(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(callers*10_00), stored.CurrentCents)
	assert.Equal(t, callers, stored.Participants)
	assert.Equal(t, stored.CurrentCents, engine.LedgerTotal(stored.Ledger))
}

// Draws on different campaigns run in parallel and share the engine's
// randomness source; they must not race on it. Run with -race.
func TestConcurrentDrawsOnDistinctCampaigns(t *testing.T) {
	eng, store, clock := newTestEngine(t)
	ctx := context.Background()

	const campaigns = 8
	ids := make([]string, campaigns)
	for i := range ids {
		campaign := fundingCampaign(t, eng, clock, 1000_00)
		_, _, err := eng.RecordContribution(ctx, campaign.ID, 1, 600_00)
		require.NoError(t, err)
		_, _, err = eng.RecordContribution(ctx, campaign.ID, 2, 400_00)
		require.NoError(t, err)
		ids[i] = campaign.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(campaignID string) {
			defer wg.Done()
			_, err := eng.Draw(ctx, campaignID)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		stored, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSettled, stored.Status)
		require.NotNil(t, stored.Settlement)
	}
}

// slowRepo blocks the first Load until released, keeping the campaign
// lock held long enough for a second caller to time out.
type slowRepo struct {
	engine.Repository
	gate    chan struct{}
	blocked sync.Once
}

func (r *slowRepo) Load(ctx context.Context, campaignID string) (*models.Campaign, error) {
	r.blocked.Do(func() { <-r.gate })
	return r.Repository.Load(ctx, campaignID)
}

func TestContendedCampaignAnswersBusy(t *testing.T) {
	store := memory.NewStore()
	clock := &stubClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo := &slowRepo{Repository: store, gate: make(chan struct{})}
	eng, err := engine.New(repo, clock, engine.DefaultSchedule(),
		engine.NewSeededSource(1), 50*time.Millisecond)
	require.NoError(t, err)

	campaign, err := eng.CreateCampaign(context.Background(), 99, "Busy dream",
		"Contention test campaign body.", "", 1000_00, clock.Now().Add(time.Hour))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := eng.RecordContribution(context.Background(), campaign.ID, 1, 100_00)
		done <- err
	}()

	// Give the first caller time to take the lock, then contend.
	time.Sleep(20 * time.Millisecond)
	_, _, err = eng.RecordContribution(context.Background(), campaign.ID, 2, 100_00)
	assert.ErrorIs(t, err, engine.ErrBusy)

	close(repo.gate)
	require.NoError(t, <-done)
}
