package clipherd

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Scheduler computes jittered release times for one account. A fixed
// interval produces a detectable cadence; perturbing each interval by
// uniform(-f*I, +f*I) avoids that while keeping worst-case staleness
// bounded.
type Scheduler struct {
	interval  time.Duration
	jitter    float64
	randFloat func() float64
	now       func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerRand replaces the jitter source. Tests use this to pin the
// draw; the default is the shared math/rand/v2 generator.
func WithSchedulerRand(f func() float64) SchedulerOption {
	return func(s *Scheduler) {
		s.randFloat = f
	}
}

// WithSchedulerClock replaces the wall clock.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler validates the interval and jitter fraction. Misconfiguration
// is rejected here, at construction, never at release time.
func NewScheduler(interval time.Duration, jitter float64, opts ...SchedulerOption) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("posting interval must be positive, got %s", interval)
	}
	if jitter < 0 || jitter >= 1 {
		return nil, errors.New("jitter fraction must be in [0, 1)")
	}

	s := &Scheduler{
		interval:  interval,
		jitter:    jitter,
		randFloat: rand.Float64,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NextRelease computes the release time following lastRelease: the base
// interval plus a uniform draw from (-f*I, +f*I), clamped to be no earlier
// than now.
func (s *Scheduler) NextRelease(lastRelease time.Time) time.Time {
	offset := time.Duration(0)
	if s.jitter > 0 {
		span := s.jitter * float64(s.interval)
		offset = time.Duration((s.randFloat()*2 - 1) * span)
	}

	next := lastRelease.Add(s.interval + offset)
	if now := s.now(); next.Before(now) {
		next = now
	}
	return next
}

// Until returns the time remaining before a release, floored at zero, for
// near-live countdown display.
func (s *Scheduler) Until(release time.Time) time.Duration {
	d := release.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

// Interval returns the configured base interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
