package models

import "time"

// LeaderboardScope narrows the ranked population.
type LeaderboardScope string

const (
	ScopeGlobal LeaderboardScope = "global"
	ScopeSchool LeaderboardScope = "school"
	ScopeClass  LeaderboardScope = "class"
)

// Valid reports whether the scope is a known value.
func (s LeaderboardScope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeSchool, ScopeClass:
		return true
	}
	return false
}

// Period selects the time window a leaderboard or summary aggregates over.
// Windows are calendar-aligned, not rolling.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Valid reports whether the period is a known value.
func (p Period) Valid() bool {
	switch p {
	case PeriodAll, PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// Start returns the inclusive lower bound of the window containing now,
// or the zero time for PeriodAll. Weeks start on Monday (ISO 8601),
// months on the 1st and years on January 1st, all in now's location.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}

// LeaderboardQuery carries the resolved parameters of a leaderboard read.
type LeaderboardQuery struct {
	Scope    LeaderboardScope
	ScopeID  string
	Period   Period
	Limit    int
	Anchored time.Time
}

// LeaderboardEntry is one ranked row. Rank is assigned after ordering by
// total points, then badge count, then full name.
type LeaderboardEntry struct {
	Rank        int     `db:"-" json:"rank"`
	UserID      string  `db:"user_id" json:"user_id"`
	FullName    string  `db:"full_name" json:"full_name"`
	SchoolName  *string `db:"school_name" json:"school_name,omitempty"`
	TotalPoints int     `db:"total_points" json:"total_points"`
	BadgeCount  int     `db:"badge_count" json:"badge_count"`
}

// UserRank is a single student's standing within a leaderboard window.
// Rank is 0 when the student has no qualifying points in the window.
type UserRank struct {
	UserID      string `db:"user_id" json:"user_id"`
	Rank        int    `db:"rank" json:"rank"`
	TotalPoints int    `db:"total_points" json:"total_points"`
	BadgeCount  int    `db:"badge_count" json:"badge_count"`
}
