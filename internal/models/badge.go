package models

import "time"

// Well-known badge names. Count-threshold rules are keyed on these; the
// catalog rows are seeded with matching names.
const (
	BadgeEcoNovice         = "Eco Novice"
	BadgeEcoScholar        = "Eco Scholar"
	BadgeGreenThumb        = "Green Thumb"
	BadgeWaterWarrior      = "Water Warrior"
	BadgeEnergyExpert      = "Energy Expert"
	BadgeRecyclingChampion = "Recycling Champion"
	BadgeCommunityLeader   = "Community Leader"
	BadgeQuizMaster        = "Quiz Master"
	BadgeQuizAce           = "Quiz Ace"
	BadgePlantWhisperer    = "Plant Whisperer"
	BadgeEcoWarrior        = "Eco Warrior"
)

// Badge is a catalog entry. PointsRequired is set for generic
// point-threshold badges and null for badges driven by a named rule.
type Badge struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	PointsRequired *int      `db:"points_required" json:"points_required,omitempty"`
	Icon           string    `db:"icon" json:"icon"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// UserBadge is the junction row recording a grant. At most one row may
// exist per (user, badge) pair; the table carries a uniqueness
// constraint that makes grants idempotent under concurrency.
type UserBadge struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	BadgeID   string    `db:"badge_id" json:"badge_id"`
	AwardedAt time.Time `db:"awarded_at" json:"awarded_at"`
}

// UserBadgeDetail joins a grant with its catalog entry for display.
type UserBadgeDetail struct {
	UserBadge
	BadgeName   string `db:"badge_name" json:"badge_name"`
	Description string `db:"description" json:"description"`
	Icon        string `db:"icon" json:"icon"`
}
