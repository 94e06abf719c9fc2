package clipherd

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerValidation(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		jitter   float64
		wantErr  bool
	}{
		{"valid", time.Hour, 0.2, false},
		{"zero jitter", time.Hour, 0, false},
		{"zero interval", 0, 0.2, true},
		{"negative interval", -time.Hour, 0.2, true},
		{"negative jitter", time.Hour, -0.1, true},
		{"jitter of one", time.Hour, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.interval, tt.jitter)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextReleaseWithinJitterBand(t *testing.T) {
	const interval = 100 * time.Minute
	const jitter = 0.1

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewPCG(1, 2))
	sched, err := NewScheduler(interval, jitter,
		WithSchedulerRand(rng.Float64),
		WithSchedulerClock(func() time.Time { return base }))
	require.NoError(t, err)

	lo := base.Add(90 * time.Minute)
	hi := base.Add(110 * time.Minute)
	for i := 0; i < 10000; i++ {
		next := sched.NextRelease(base)
		assert.False(t, next.Before(lo), "release %s before lower bound %s", next, lo)
		assert.False(t, next.After(hi), "release %s after upper bound %s", next, hi)
	}
}

func TestNextReleaseNeverInPast(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sched, err := NewScheduler(time.Hour, 0.5,
		WithSchedulerClock(func() time.Time { return now }))
	require.NoError(t, err)

	// A last release far in the past would land the next slot before now;
	// it must clamp to now instead.
	stale := now.Add(-48 * time.Hour)
	for i := 0; i < 1000; i++ {
		next := sched.NextRelease(stale)
		assert.False(t, next.Before(now))
	}
}

func TestNextReleaseZeroJitterIsExact(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sched, err := NewScheduler(time.Hour, 0,
		WithSchedulerClock(func() time.Time { return base }))
	require.NoError(t, err)

	assert.Equal(t, base.Add(time.Hour), sched.NextRelease(base))
}

func TestUntilFloorsAtZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sched, err := NewScheduler(time.Hour, 0,
		WithSchedulerClock(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, sched.Until(now.Add(30*time.Minute)))
	assert.Equal(t, time.Duration(0), sched.Until(now.Add(-time.Minute)))
}
