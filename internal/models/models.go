package models

import "time"

// We use 'db' tags for sqlx to automatically map
// the database column names (snake_case) to our Go fields (CamelCase).

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	StatusFunding     CampaignStatus = "funding"
	StatusReadyToDraw CampaignStatus = "ready_to_draw"
	StatusDrawing     CampaignStatus = "drawing"
	StatusSettled     CampaignStatus = "settled"
	StatusCompleted   CampaignStatus = "completed"
	StatusFailed      CampaignStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s CampaignStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// User represents an account that can create and join campaigns.
type User struct {
	ID           int       `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	DisplayName  string    `db:"display_name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Campaign is a single funding-and-draw cycle for one dream.
// All amounts are integer cents. The campaign owns its ledger and
// settlement; the Version column backs compare-and-swap saves.
type Campaign struct {
	ID           string         `db:"id"`
	CreatorID    int            `db:"creator_id"`
	Title        string         `db:"title"`
	Story        string         `db:"story"`
	ImageURL     string         `db:"image_url"`
	TargetCents  int64          `db:"target_cents"`
	CurrentCents int64          `db:"current_cents"`
	Deadline     time.Time      `db:"deadline"`
	Status       CampaignStatus `db:"status"`
	Participants int            `db:"participants"`
	Version      int            `db:"version"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`

	Ledger     []Contribution `db:"-"`
	Settlement *Settlement    `db:"-"`
	Refunds    []Refund       `db:"-"`
}

// Contribution is one immutable ledger entry.
type Contribution struct {
	ID            string    `db:"id"`
	CampaignID    string    `db:"campaign_id"`
	ContributorID int       `db:"contributor_id"`
	AmountCents   int64     `db:"amount_cents"`
	CreatedAt     time.Time `db:"created_at"`
}

// ParticipantShare is derived from the ledger: a contributor's
// aggregate amount and their percentage of the funds raised, which is
// also their win probability.
type ParticipantShare struct {
	ContributorID int     `json:"contributor_id"`
	AmountCents   int64   `json:"amount_cents"`
	SharePercent  float64 `json:"share_percent"`
	// FirstAt is the contributor's earliest ledger entry, used to
	// break ordering ties deterministically.
	FirstAt time.Time `json:"-"`
}

// Settlement is the finalized, immutable record of the fund allocation
// after a draw. SelectedContributorID is nil only for the zero
// contributor edge case.
type Settlement struct {
	ID                     string    `db:"id"`
	CampaignID             string    `db:"campaign_id"`
	SelectedContributorID  *int      `db:"selected_contributor_id"`
	TotalCents             int64     `db:"total_cents"`
	PlatformFeeCents       int64     `db:"platform_fee_cents"`
	CreatorCommissionCents int64     `db:"creator_commission_cents"`
	ShareBonusCents        int64     `db:"share_bonus_cents"`
	CharityCents           int64     `db:"charity_cents"`
	WinnerPayoutCents      int64     `db:"winner_payout_cents"`
	DrawDate               time.Time `db:"draw_date"`
	SettledAt              time.Time `db:"settled_at"`
}

// Refund is owed to a contributor either because the campaign failed
// or because someone else was selected.
type Refund struct {
	CampaignID    string `db:"campaign_id"`
	ContributorID int    `db:"contributor_id"`
	AmountCents   int64  `db:"amount_cents"`
}
