package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateFutureDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(3*24*time.Hour + 5*time.Hour + 42*time.Minute + 7*time.Second)

	cd := Evaluate(deadline, now)

	assert.Equal(t, 3, cd.Days)
	assert.Equal(t, 5, cd.Hours)
	assert.Equal(t, 42, cd.Minutes)
	assert.Equal(t, 7, cd.Seconds)
	assert.False(t, cd.IsExpired)
}

func TestEvaluateExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, deadline := range []time.Time{now, now.Add(-time.Second), now.Add(-400 * 24 * time.Hour)} {
		cd := Evaluate(deadline, now)
		assert.True(t, cd.IsExpired)
		assert.Zero(t, cd.Days)
		assert.Zero(t, cd.Hours)
		assert.Zero(t, cd.Minutes)
		assert.Zero(t, cd.Seconds)
	}
}

func TestEvaluateComponentBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Sweep across a couple of days at odd offsets; components must
	// stay within their wall-clock ranges.
	for offset := time.Second; offset < 50*time.Hour; offset += 7*time.Minute + 13*time.Second {
		cd := Evaluate(now.Add(offset), now)
		assert.False(t, cd.IsExpired)
		assert.GreaterOrEqual(t, cd.Days, 0)
		assert.Less(t, cd.Hours, 24)
		assert.GreaterOrEqual(t, cd.Hours, 0)
		assert.Less(t, cd.Minutes, 60)
		assert.GreaterOrEqual(t, cd.Minutes, 0)
		assert.Less(t, cd.Seconds, 60)
		assert.GreaterOrEqual(t, cd.Seconds, 0)
	}
}

func TestEvaluateSubSecondRemainder(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cd := Evaluate(now.Add(500*time.Millisecond), now)
	assert.False(t, cd.IsExpired)
	assert.Zero(t, cd.Seconds)

	cd = Evaluate(now.Add(90*time.Second), now)
	assert.Equal(t, 1, cd.Minutes)
	assert.Equal(t, 30, cd.Seconds)
}
