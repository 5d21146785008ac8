package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	at := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, at.Add(15*time.Minute), s.Next(at))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestDailySchedule_SameDay(t *testing.T) {
	s := NewDailySchedule(0, 5, time.UTC)
	at := time.Date(2026, time.March, 2, 23, 50, 0, 0, time.UTC)

	next := s.Next(at)
	assert.Equal(t, time.Date(2026, time.March, 3, 0, 5, 0, 0, time.UTC), next)

	// Before today's slot, the next run is still today.
	at = time.Date(2026, time.March, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 5, 0, 0, time.UTC), s.Next(at))
}

func TestDailySchedule_ExactTimeRollsOver(t *testing.T) {
	s := NewDailySchedule(3, 0, time.UTC)
	at := time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)

	// Firing exactly at the slot schedules tomorrow, never a zero delay.
	assert.Equal(t, time.Date(2026, time.March, 3, 3, 0, 0, 0, time.UTC), s.Next(at))
}

func TestDailySchedule_NilLocationDefaultsUTC(t *testing.T) {
	s := NewDailySchedule(6, 30, nil)
	assert.Equal(t, time.UTC, s.Location)
	assert.Equal(t, "@daily 06:30 UTC", s.String())
}
