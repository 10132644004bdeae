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

// PointsRepository owns the append-only eco-points ledger. Rows are
// inserted once and never updated; totals are always aggregated fresh.
type PointsRepository struct {
	db *sqlx.DB
}

// NewPointsRepository creates a new instance of PointsRepository.
func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// Insert appends a point event to the ledger.
func (r *PointsRepository) Insert(ctx context.Context, event *models.PointEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.AwardedAt.IsZero() {
		event.AwardedAt = time.Now().UTC()
	}
	const query = `INSERT INTO point_events (id, user_id, points, activity_type, activity_id, reason_id, note, awarded_by, awarded_at) VALUES (:id, :user_id, :points, :activity_type, :activity_id, :reason_id, :note, :awarded_by, :awarded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert point event: %w", err)
	}
	return nil
}

// TotalPoints sums every ledger entry for a user.
func (r *PointsRepository) TotalPoints(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COALESCE(SUM(points), 0) FROM point_events WHERE user_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

// TotalPointsSince sums ledger entries awarded at or after the cutoff.
func (r *PointsRepository) TotalPointsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(points), 0) FROM point_events WHERE user_id = $1 AND awarded_at >= $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, since); err != nil {
		return 0, fmt.Errorf("sum points since: %w", err)
	}
	return total, nil
}

// History returns a page of a user's ledger, newest first, with the
// total event count for pagination.
func (r *PointsRepository) History(ctx context.Context, userID string, limit, offset int) ([]models.PointEvent, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const listQuery = `SELECT id, user_id, points, activity_type, activity_id, reason_id, note, awarded_by, awarded_at FROM point_events WHERE user_id = $1 ORDER BY awarded_at DESC, id DESC LIMIT $2 OFFSET $3`
	var events []models.PointEvent
	if err := r.db.SelectContext(ctx, &events, listQuery, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list point events: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM point_events WHERE user_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count point events: %w", err)
	}

	return events, total, nil
}

// BreakdownByActivityType aggregates a user's points per activity type,
// largest total first.
func (r *PointsRepository) BreakdownByActivityType(ctx context.Context, userID string) ([]models.ActivityBreakdown, error) {
	const query = `SELECT activity_type, COALESCE(SUM(points), 0) AS total_points, COUNT(*) AS event_count FROM point_events WHERE user_id = $1 GROUP BY activity_type ORDER BY total_points DESC, activity_type ASC`
	var breakdown []models.ActivityBreakdown
	if err := r.db.SelectContext(ctx, &breakdown, query, userID); err != nil {
		return nil, fmt.Errorf("breakdown by activity type: %w", err)
	}
	return breakdown, nil
}

// FindReasonByKey resolves a reason catalog entry by its key. Callers
// treat sql.ErrNoRows as "no reason recorded" rather than a failure.
func (r *PointsRepository) FindReasonByKey(ctx context.Context, key string) (*models.PointReason, error) {
	const query = `SELECT id, key, label FROM point_reasons WHERE key = $1 LIMIT 1`
	var reason models.PointReason
	if err := r.db.GetContext(ctx, &reason, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find point reason: %w", err)
	}
	return &reason, nil
}
