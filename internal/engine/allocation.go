package engine

import "github.com/shopspring/decimal"

// Schedule is the fixed percentage split applied to a campaign's funds
// at draw time. Each percentage is independently overridable through
// configuration; the parts must sum to exactly 100.
type Schedule struct {
	WinnerPercent            decimal.Decimal
	CharityPercent           decimal.Decimal
	CreatorCommissionPercent decimal.Decimal
	ShareBonusPercent        decimal.Decimal
	PlatformFeePercent       decimal.Decimal
}

// DefaultSchedule is winner 90, charity 5, creator commission 1,
// share bonus 3, platform fee 1.
func DefaultSchedule() Schedule {
	return Schedule{
		WinnerPercent:            decimal.NewFromInt(90),
		CharityPercent:           decimal.NewFromInt(5),
		CreatorCommissionPercent: decimal.NewFromInt(1),
		ShareBonusPercent:        decimal.NewFromInt(3),
		PlatformFeePercent:       decimal.NewFromInt(1),
	}
}

// NewSchedule builds a schedule from percentage values and validates
// the sum-to-100 rule once, at setup time.
func NewSchedule(winner, charity, commission, bonus, platform float64) (Schedule, error) {
	s := Schedule{
		WinnerPercent:            decimal.NewFromFloat(winner),
		CharityPercent:           decimal.NewFromFloat(charity),
		CreatorCommissionPercent: decimal.NewFromFloat(commission),
		ShareBonusPercent:        decimal.NewFromFloat(bonus),
		PlatformFeePercent:       decimal.NewFromFloat(platform),
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

func (s Schedule) Validate() error {
	sum := s.WinnerPercent.
		Add(s.CharityPercent).
		Add(s.CreatorCommissionPercent).
		Add(s.ShareBonusPercent).
		Add(s.PlatformFeePercent)
	if !sum.Equal(decimal.NewFromInt(100)) {
		return ErrInvalidSchedule
	}
	return nil
}

// Allocation is the money split of a campaign's total funds. The parts
// always sum exactly to TotalCents.
type Allocation struct {
	TotalCents             int64
	WinnerPayoutCents      int64
	CharityCents           int64
	CreatorCommissionCents int64
	ShareBonusCents        int64
	PlatformFeeCents       int64
}

// Allocate splits totalCents by the schedule. Every part except the
// platform fee is rounded down to a whole cent; the platform fee takes
// the remainder, so rounding residue never leaks. Allocate knows
// nothing about who won, it only computes the split.
func (s Schedule) Allocate(totalCents int64) Allocation {
	total := decimal.NewFromInt(totalCents)
	hundred := decimal.NewFromInt(100)

	part := func(pct decimal.Decimal) int64 {
		return total.Mul(pct).Div(hundred).Floor().IntPart()
	}

	a := Allocation{
		TotalCents:             totalCents,
		WinnerPayoutCents:      part(s.WinnerPercent),
		CharityCents:           part(s.CharityPercent),
		CreatorCommissionCents: part(s.CreatorCommissionPercent),
		ShareBonusCents:        part(s.ShareBonusPercent),
	}
	a.PlatformFeeCents = totalCents - a.WinnerPayoutCents - a.CharityCents -
		a.CreatorCommissionCents - a.ShareBonusCents
	return a
}
