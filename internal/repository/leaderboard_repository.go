package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/greenquest/greenquest-api/internal/models"
)

// LeaderboardRepository ranks students by aggregating the point ledger.
// Standings are never stored; every read recomputes from point_events.
type LeaderboardRepository struct {
	db *sqlx.DB
}

// NewLeaderboardRepository creates a new instance of LeaderboardRepository.
func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// scopeFilter returns the SQL condition and arguments narrowing the
// ranked population. Windowing by since applies when since is non-zero.
func scopeFilter(scope models.LeaderboardScope, scopeID string, since time.Time, args []interface{}) (string, []interface{}) {
	conditions := []string{"u.role = 'STUDENT'", "u.active = TRUE"}

	switch scope {
	case models.ScopeSchool:
		args = append(args, scopeID)
		conditions = append(conditions, fmt.Sprintf("u.school_id = $%d", len(args)))
	case models.ScopeClass:
		args = append(args, scopeID)
		conditions = append(conditions, fmt.Sprintf("u.class_id = $%d", len(args)))
	}

	if !since.IsZero() {
		args = append(args, since)
		conditions = append(conditions, fmt.Sprintf("pe.awarded_at >= $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// TopStudents returns the ranked standings for the requested window.
// Students without a positive point total in the window are excluded.
// Rank numbers are filled in by position after the deterministic ordering.
func (r *LeaderboardRepository) TopStudents(ctx context.Context, q models.LeaderboardQuery) ([]models.LeaderboardEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	var args []interface{}
	where, args := scopeFilter(q.Scope, q.ScopeID, q.Period.Start(q.Anchored), args)
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT u.id AS user_id, u.full_name, s.name AS school_name,
	COALESCE(SUM(pe.points), 0) AS total_points,
	(SELECT COUNT(*) FROM user_badges ub WHERE ub.user_id = u.id) AS badge_count
FROM point_events pe
JOIN users u ON u.id = pe.user_id
LEFT JOIN schools s ON s.id = u.school_id
WHERE %s
GROUP BY u.id, u.full_name, s.name
HAVING SUM(pe.points) > 0
ORDER BY total_points DESC, badge_count DESC, u.full_name ASC
LIMIT $%d`, where, len(args))

	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// UserRank returns a single student's standing for the window. Rank is 0
// when the student has no qualifying points.
func (r *LeaderboardRepository) UserRank(ctx context.Context, q models.LeaderboardQuery, userID string) (*models.UserRank, error) {
	var args []interface{}
	where, args := scopeFilter(q.Scope, q.ScopeID, q.Period.Start(q.Anchored), args)
	args = append(args, userID)

	query := fmt.Sprintf(`SELECT user_id, rank, total_points, badge_count FROM (
	SELECT u.id AS user_id,
		COALESCE(SUM(pe.points), 0) AS total_points,
		(SELECT COUNT(*) FROM user_badges ub WHERE ub.user_id = u.id) AS badge_count,
		ROW_NUMBER() OVER (ORDER BY COALESCE(SUM(pe.points), 0) DESC, (SELECT COUNT(*) FROM user_badges ub WHERE ub.user_id = u.id) DESC, u.full_name ASC) AS rank
	FROM point_events pe
	JOIN users u ON u.id = pe.user_id
	WHERE %s
	GROUP BY u.id, u.full_name
	HAVING SUM(pe.points) > 0
) ranked WHERE user_id = $%d`, where, len(args))

	var rank models.UserRank
	if err := r.db.GetContext(ctx, &rank, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return &models.UserRank{UserID: userID, Rank: 0, TotalPoints: 0, BadgeCount: 0}, nil
		}
		return nil, fmt.Errorf("user rank: %w", err)
	}
	return &rank, nil
}
