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

// LessonRepository provides database access for lessons and progress rows.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new instance of LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID returns a lesson catalog entry.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, title, category, active, created_at FROM lessons WHERE id = $1 LIMIT 1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// CompleteLesson marks the lesson done and appends the point event in one
// transaction. The unique constraint on (user_id, lesson_id) plus the
// completed_at guard make repeat completions a no-op; the boolean reports
// whether the lesson was newly completed.
func (r *LessonRepository) CompleteLesson(ctx context.Context, progress *models.LessonProgress, event *models.PointEvent) (bool, error) {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	if progress.StartedAt.IsZero() {
		progress.StartedAt = time.Now().UTC()
	}
	if progress.CompletedAt == nil {
		now := time.Now().UTC()
		progress.CompletedAt = &now
	}
	progress.Status = models.LessonCompleted

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete lesson tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsertQuery = `INSERT INTO lesson_progress (id, user_id, lesson_id, status, completed_at, started_at)
VALUES (:id, :user_id, :lesson_id, :status, :completed_at, :started_at)
ON CONFLICT (user_id, lesson_id) DO UPDATE SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at
WHERE lesson_progress.completed_at IS NULL`
	res, err := tx.NamedExecContext(ctx, upsertQuery, progress)
	if err != nil {
		return false, fmt.Errorf("upsert lesson progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lesson progress rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.AwardedAt.IsZero() {
		event.AwardedAt = *progress.CompletedAt
	}
	const eventQuery = `INSERT INTO point_events (id, user_id, points, activity_type, activity_id, reason_id, note, awarded_by, awarded_at) VALUES (:id, :user_id, :points, :activity_type, :activity_id, :reason_id, :note, :awarded_by, :awarded_at)`
	if _, err := tx.NamedExecContext(ctx, eventQuery, event); err != nil {
		return false, fmt.Errorf("insert lesson point event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit complete lesson tx: %w", err)
	}
	return true, nil
}

// CountCompleted returns how many lessons the user has finished.
func (r *LessonRepository) CountCompleted(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lesson_progress WHERE user_id = $1 AND status = 'completed'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	return count, nil
}
