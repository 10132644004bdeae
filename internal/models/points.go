package models

import "time"

// ActivityType classifies the source of a point award.
type ActivityType string

const (
	ActivityLesson    ActivityType = "lesson"
	ActivityQuiz      ActivityType = "quiz"
	ActivityChallenge ActivityType = "challenge"
	ActivityManual    ActivityType = "manual"
	ActivityOther     ActivityType = "other"
)

// Valid reports whether the activity type is a known value.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityLesson, ActivityQuiz, ActivityChallenge, ActivityManual, ActivityOther:
		return true
	}
	return false
}

// PointEvent is an immutable entry in the eco-points ledger. Events are
// appended once and never updated or deleted; every derived total is a
// fresh aggregation over these rows.
type PointEvent struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"user_id"`
	Points       int          `db:"points" json:"points"`
	ActivityType ActivityType `db:"activity_type" json:"activity_type"`
	ActivityID   *string      `db:"activity_id" json:"activity_id,omitempty"`
	ReasonID     *string      `db:"reason_id" json:"reason_id,omitempty"`
	Note         string       `db:"note" json:"note"`
	AwardedBy    *string      `db:"awarded_by" json:"awarded_by,omitempty"`
	AwardedAt    time.Time    `db:"awarded_at" json:"awarded_at"`
}

// PointReason is a catalog entry describing why points were granted.
type PointReason struct {
	ID    string `db:"id" json:"id"`
	Key   string `db:"key" json:"key"`
	Label string `db:"label" json:"label"`
}

// ActivityBreakdown sums a user's points for one activity type.
type ActivityBreakdown struct {
	ActivityType ActivityType `db:"activity_type" json:"activity_type"`
	TotalPoints  int          `db:"total_points" json:"total_points"`
	EventCount   int          `db:"event_count" json:"event_count"`
}

// AwardPointsRequest is a manual point award issued by staff. Points may
// be negative for corrective entries but never zero.
type AwardPointsRequest struct {
	UserID       string       `json:"user_id" validate:"required"`
	Points       int          `json:"points" validate:"required"`
	ActivityType ActivityType `json:"activity_type" validate:"required"`
	ActivityID   *string      `json:"activity_id,omitempty"`
	ReasonKey    string       `json:"reason_key,omitempty"`
	Note         string       `json:"note,omitempty" validate:"max=500"`
}

// AwardResult reports the appended event and any badges it unlocked.
type AwardResult struct {
	Event     *PointEvent `json:"event"`
	NewBadges []string    `json:"new_badges"`
}

// PointsSummary combines the aggregates a student dashboard needs.
type PointsSummary struct {
	UserID      string              `json:"user_id"`
	TotalPoints int                 `json:"total_points"`
	WeekPoints  int                 `json:"week_points"`
	MonthPoints int                 `json:"month_points"`
	YearPoints  int                 `json:"year_points"`
	Breakdown   []ActivityBreakdown `json:"breakdown"`
}
