package engine

import (
	"errors"
	"fmt"

	"dreampool/internal/models"
)

var (
	ErrInvalidAmount      = errors.New("contribution amount must be positive")
	ErrCampaignNotFunding = errors.New("campaign is not accepting contributions")
	ErrInvalidSchedule    = errors.New("allocation percentages must sum to 100")
	ErrEmptyLedger        = errors.New("campaign has no contributors")
	ErrAlreadyDrawn       = errors.New("campaign has already been drawn")
	ErrBusy               = errors.New("campaign is busy, retry")
	ErrNotFound           = errors.New("campaign not found")
	ErrConflict           = errors.New("campaign was modified concurrently")
)

// TransitionError reports a rejected state machine transition. It
// matches ErrInvalidTransition under errors.Is.
type TransitionError struct {
	From models.CampaignStatus
	To   models.CampaignStatus
}

var ErrInvalidTransition = errors.New("invalid campaign transition")

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid campaign transition from %q to %q", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
