package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"dreampool/internal/models"
)

// sharePrecision is the number of fractional digits kept when a share
// percentage is computed. Drift in the sum-to-100 property stays below
// 1e-6 per ledger entry at this precision.
const sharePrecision = 8

// ComputeShares aggregates the ledger into one share per distinct
// contributor: their total amount and their percentage of the funds
// raised. The result is ordered by total descending, ties broken by
// earliest first contribution, so top-contributor lists and draw
// walks are reproducible regardless of arrival order.
func ComputeShares(ledger []models.Contribution, currentCents int64) []models.ParticipantShare {
	totals := make(map[int]*models.ParticipantShare)
	for _, entry := range ledger {
		share, ok := totals[entry.ContributorID]
		if !ok {
			share = &models.ParticipantShare{
				ContributorID: entry.ContributorID,
				FirstAt:       entry.CreatedAt,
			}
			totals[entry.ContributorID] = share
		}
		share.AmountCents += entry.AmountCents
		if entry.CreatedAt.Before(share.FirstAt) {
			share.FirstAt = entry.CreatedAt
		}
	}

	shares := make([]models.ParticipantShare, 0, len(totals))
	total := decimal.NewFromInt(currentCents)
	for _, share := range totals {
		if currentCents > 0 {
			pct := decimal.NewFromInt(share.AmountCents).
				Mul(decimal.NewFromInt(100)).
				DivRound(total, sharePrecision)
			share.SharePercent, _ = pct.Float64()
		}
		shares = append(shares, *share)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].AmountCents != shares[j].AmountCents {
			return shares[i].AmountCents > shares[j].AmountCents
		}
		if !shares[i].FirstAt.Equal(shares[j].FirstAt) {
			return shares[i].FirstAt.Before(shares[j].FirstAt)
		}
		return shares[i].ContributorID < shares[j].ContributorID
	})
	return shares
}

// LedgerTotal sums the ledger entries. The engine keeps this equal to
// the campaign's CurrentCents at all times.
func LedgerTotal(ledger []models.Contribution) int64 {
	var total int64
	for _, entry := range ledger {
		total += entry.AmountCents
	}
	return total
}
