package engine

import (
	"math/rand"
	"sync"

	"dreampool/internal/models"
)

// SelectWinner picks one contributor, weighted by share percentage: a
// uniform value in [0,100) is drawn and the ordered shares are walked
// accumulating weight until the cumulative sum passes the drawn value.
// Selection probability is therefore proportional to contribution
// amount, which is the fairness guarantee of the whole system.
func SelectWinner(shares []models.ParticipantShare, src RandSource) (int, error) {
	if len(shares) == 0 {
		return 0, ErrEmptyLedger
	}

	point := src.NextUniform() * 100

	var cumulative float64
	for _, share := range shares {
		cumulative += share.SharePercent
		if point < cumulative {
			return share.ContributorID, nil
		}
	}
	// Rounding drift can leave the walk a hair short of 100; the last
	// share absorbs it.
	return shares[len(shares)-1].ContributorID, nil
}

// SeededSource is a RandSource over math/rand with a fixed seed, used
// to make draws reproducible for audit and tests. rand.Rand is not
// safe for concurrent use and one source is shared across campaigns,
// so NextUniform serializes access itself; per-campaign locks do not
// cover it.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SeededSource) NextUniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
