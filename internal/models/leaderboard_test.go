package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStartCalendarAligned(t *testing.T) {
	// Wednesday, 18 March 2026, mid-afternoon.
	now := time.Date(2026, 3, 18, 15, 30, 45, 0, time.UTC)

	assert.True(t, PeriodAll.Start(now).IsZero())
	assert.Equal(t, time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), PeriodDay.Start(now))
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), PeriodWeek.Start(now))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), PeriodMonth.Start(now))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), PeriodYear.Start(now))
}

func TestPeriodStartWeekOnSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 3, 22, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), PeriodWeek.Start(sunday))

	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, PeriodWeek.Start(monday))
}

func TestPeriodAndScopeValid(t *testing.T) {
	assert.True(t, PeriodWeek.Valid())
	assert.False(t, Period("fortnight").Valid())
	assert.True(t, ScopeClass.Valid())
	assert.False(t, LeaderboardScope("district").Valid())
}
