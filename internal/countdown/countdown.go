// Package countdown computes the remaining time until a campaign
// deadline. It is pure: both inputs must already be in the same
// reference frame (UTC), and the caller decides how often to poll.
package countdown

import "time"

// Countdown is the remaining-time breakdown shown on campaign cards.
// Days is unbounded; Hours is in [0,23], Minutes and Seconds in [0,59].
type Countdown struct {
	Days      int  `json:"days"`
	Hours     int  `json:"hours"`
	Minutes   int  `json:"minutes"`
	Seconds   int  `json:"seconds"`
	IsExpired bool `json:"is_expired"`
}

// Evaluate returns the whole-unit breakdown of deadline minus now.
// If the deadline has passed the breakdown is all zeros with
// IsExpired set.
func Evaluate(deadline, now time.Time) Countdown {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return Countdown{IsExpired: true}
	}

	return Countdown{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Seconds: int(diff % time.Minute / time.Second),
	}
}
