package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/greenquest/greenquest-api/internal/models"
)

// BadgeRepository provides database access for the badge catalog and grants.
type BadgeRepository struct {
	db *sqlx.DB
}

// NewBadgeRepository creates a new instance of BadgeRepository.
func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// ListCatalog returns every badge definition ordered by name.
func (r *BadgeRepository) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	const query = `SELECT id, name, description, points_required, icon, created_at FROM badges ORDER BY name ASC`
	var badges []models.Badge
	if err := r.db.SelectContext(ctx, &badges, query); err != nil {
		return nil, fmt.Errorf("list badge catalog: %w", err)
	}
	return badges, nil
}

// FindByName returns a badge catalog entry by its display name.
func (r *BadgeRepository) FindByName(ctx context.Context, name string) (*models.Badge, error) {
	const query = `SELECT id, name, description, points_required, icon, created_at FROM badges WHERE name = $1 LIMIT 1`
	var badge models.Badge
	if err := r.db.GetContext(ctx, &badge, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find badge by name: %w", err)
	}
	return &badge, nil
}

// EligiblePointBadges returns point-threshold badges the user has reached
// but does not hold yet, lowest threshold first.
func (r *BadgeRepository) EligiblePointBadges(ctx context.Context, userID string, totalPoints int) ([]models.Badge, error) {
	const query = `SELECT b.id, b.name, b.description, b.points_required, b.icon, b.created_at
FROM badges b
WHERE b.points_required IS NOT NULL
  AND b.points_required <= $2
  AND NOT EXISTS (SELECT 1 FROM user_badges ub WHERE ub.badge_id = b.id AND ub.user_id = $1)
ORDER BY b.points_required ASC, b.name ASC`
	var badges []models.Badge
	if err := r.db.SelectContext(ctx, &badges, query, userID, totalPoints); err != nil {
		return nil, fmt.Errorf("list eligible point badges: %w", err)
	}
	return badges, nil
}

// InsertUserBadge grants a badge to a user. The unique constraint on
// (user_id, badge_id) makes the insert a no-op when the badge is already
// held; the boolean reports whether a new row was written.
func (r *BadgeRepository) InsertUserBadge(ctx context.Context, grant *models.UserBadge) (bool, error) {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.AwardedAt.IsZero() {
		grant.AwardedAt = time.Now().UTC()
	}
	const query = `INSERT INTO user_badges (id, user_id, badge_id, awarded_at) VALUES (:id, :user_id, :badge_id, :awarded_at) ON CONFLICT (user_id, badge_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, grant)
	if err != nil {
		return false, fmt.Errorf("insert user badge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user badge rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListUserBadges returns a user's badges with catalog details, most
// recently earned first.
func (r *BadgeRepository) ListUserBadges(ctx context.Context, userID string) ([]models.UserBadgeDetail, error) {
	const query = `SELECT ub.id, ub.user_id, ub.badge_id, ub.awarded_at, b.name AS badge_name, b.description, b.icon
FROM user_badges ub
JOIN badges b ON b.id = ub.badge_id
WHERE ub.user_id = $1
ORDER BY ub.awarded_at DESC, b.name ASC`
	var badges []models.UserBadgeDetail
	if err := r.db.SelectContext(ctx, &badges, query, userID); err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	return badges, nil
}

// RecentlyEarned returns badges granted to the user at or after the cutoff.
func (r *BadgeRepository) RecentlyEarned(ctx context.Context, userID string, since time.Time) ([]models.UserBadgeDetail, error) {
	const query = `SELECT ub.id, ub.user_id, ub.badge_id, ub.awarded_at, b.name AS badge_name, b.description, b.icon
FROM user_badges ub
JOIN badges b ON b.id = ub.badge_id
WHERE ub.user_id = $1 AND ub.awarded_at >= $2
ORDER BY ub.awarded_at DESC`
	var badges []models.UserBadgeDetail
	if err := r.db.SelectContext(ctx, &badges, query, userID, since); err != nil {
		return nil, fmt.Errorf("list recently earned badges: %w", err)
	}
	return badges, nil
}

// CountForUser returns how many badges the user holds.
func (r *BadgeRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM user_badges WHERE user_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count user badges: %w", err)
	}
	return count, nil
}

// HasBadge reports whether the user already holds the named badge.
func (r *BadgeRepository) HasBadge(ctx context.Context, userID, badgeName string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_badges ub JOIN badges b ON b.id = ub.badge_id WHERE ub.user_id = $1 AND b.name = $2)`
	var held bool
	if err := r.db.GetContext(ctx, &held, query, userID, badgeName); err != nil {
		return false, fmt.Errorf("check badge held: %w", err)
	}
	return held, nil
}
