// Package postgres stores campaigns in PostgreSQL through sqlx. Each
// campaign row carries a version column; Save is a read-modify-write
// guarded by that version so concurrent writers surface as Conflict
// instead of silently losing updates.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"dreampool/internal/engine"
	"dreampool/internal/models"
)

type Repository struct {
	DB *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) Create(ctx context.Context, campaign *models.Campaign) error {
	campaign.Version = 1
	query := `
		INSERT INTO campaigns
		  (id, creator_id, title, story, image_url, target_cents, current_cents,
		   deadline, status, participants, version, created_at, updated_at)
		VALUES
		  (:id, :creator_id, :title, :story, :image_url, :target_cents, :current_cents,
		   :deadline, :status, :participants, :version, :created_at, :updated_at)
	`
	_, err := r.DB.NamedExecContext(ctx, query, campaign)
	return err
}

func (r *Repository) Load(ctx context.Context, campaignID string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.DB.GetContext(ctx, &campaign,
		`SELECT * FROM campaigns WHERE id = $1`, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &campaign.Ledger,
		`SELECT * FROM contributions WHERE campaign_id = $1 ORDER BY created_at, id`,
		campaignID)
	if err != nil {
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &campaign.Refunds,
		`SELECT campaign_id, contributor_id, amount_cents FROM refunds WHERE campaign_id = $1`,
		campaignID)
	if err != nil {
		return nil, err
	}

	var settlement models.Settlement
	err = r.DB.GetContext(ctx, &settlement,
		`SELECT * FROM settlements WHERE campaign_id = $1`, campaignID)
	if err == nil {
		campaign.Settlement = &settlement
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return &campaign, nil
}

// Save writes the campaign row, any new ledger entries, the refund set
// and the settlement atomically. The version check and bump happen in
// the UPDATE itself; zero rows affected means another writer got there
// first.
func (r *Repository) Save(ctx context.Context, campaign *models.Campaign) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET current_cents = $1, status = $2, participants = $3,
		    version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6
	`, campaign.CurrentCents, campaign.Status, campaign.Participants,
		campaign.UpdatedAt, campaign.ID, campaign.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrConflict
	}

	// Ledger entries are immutable; re-inserting already persisted
	// ones is a no-op.
	for _, entry := range campaign.Ledger {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO contributions (id, campaign_id, contributor_id, amount_cents, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, entry.ID, entry.CampaignID, entry.ContributorID, entry.AmountCents, entry.CreatedAt)
		if err != nil {
			return err
		}
	}

	if len(campaign.Refunds) > 0 {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM refunds WHERE campaign_id = $1`, campaign.ID); err != nil {
			return err
		}
		for _, refund := range campaign.Refunds {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO refunds (campaign_id, contributor_id, amount_cents)
				VALUES ($1, $2, $3)
			`, refund.CampaignID, refund.ContributorID, refund.AmountCents)
			if err != nil {
				return err
			}
		}
	}

	if campaign.Settlement != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO settlements
			  (id, campaign_id, selected_contributor_id, total_cents, platform_fee_cents,
			   creator_commission_cents, share_bonus_cents, charity_cents,
			   winner_payout_cents, draw_date, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (campaign_id) DO NOTHING
		`, campaign.Settlement.ID, campaign.Settlement.CampaignID,
			campaign.Settlement.SelectedContributorID, campaign.Settlement.TotalCents,
			campaign.Settlement.PlatformFeeCents, campaign.Settlement.CreatorCommissionCents,
			campaign.Settlement.ShareBonusCents, campaign.Settlement.CharityCents,
			campaign.Settlement.WinnerPayoutCents, campaign.Settlement.DrawDate,
			campaign.Settlement.SettledAt)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	campaign.Version++
	return nil
}

func (r *Repository) List(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.DB.SelectContext(ctx, &campaigns,
		`SELECT * FROM campaigns ORDER BY created_at DESC`)
	return campaigns, err
}

func (r *Repository) ListOpen(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.DB.SelectContext(ctx, &campaigns, `
		SELECT * FROM campaigns
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at DESC
	`, models.StatusCompleted, models.StatusFailed)
	return campaigns, err
}
