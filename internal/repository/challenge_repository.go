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

// ChallengeRepository provides database access for challenges and the
// enrollment workflow.
type ChallengeRepository struct {
	db *sqlx.DB
}

// NewChallengeRepository creates a new instance of ChallengeRepository.
func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// FindByID returns a challenge catalog entry.
func (r *ChallengeRepository) FindByID(ctx context.Context, id string) (*models.Challenge, error) {
	const query = `SELECT id, title, description, category, eco_points, active, created_at FROM challenges WHERE id = $1 LIMIT 1`
	var challenge models.Challenge
	if err := r.db.GetContext(ctx, &challenge, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	return &challenge, nil
}

// ListActive returns active challenges ordered by creation time.
func (r *ChallengeRepository) ListActive(ctx context.Context) ([]models.Challenge, error) {
	const query = `SELECT id, title, description, category, eco_points, active, created_at FROM challenges WHERE active = TRUE ORDER BY created_at DESC`
	var challenges []models.Challenge
	if err := r.db.SelectContext(ctx, &challenges, query); err != nil {
		return nil, fmt.Errorf("list active challenges: %w", err)
	}
	return challenges, nil
}

// FindUserChallenge returns a user's workflow row joined with its challenge.
func (r *ChallengeRepository) FindUserChallenge(ctx context.Context, userID, challengeID string) (*models.UserChallengeDetail, error) {
	const query = `SELECT uc.id, uc.user_id, uc.challenge_id, uc.status, uc.proof_note, uc.proof_url, uc.submitted_at, uc.verified_by, uc.verified_at, uc.enrolled_at, c.title, c.category, c.eco_points
FROM user_challenges uc
JOIN challenges c ON c.id = uc.challenge_id
WHERE uc.user_id = $1 AND uc.challenge_id = $2
LIMIT 1`
	var detail models.UserChallengeDetail
	if err := r.db.GetContext(ctx, &detail, query, userID, challengeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user challenge: %w", err)
	}
	return &detail, nil
}

// FindUserChallengeByID returns a workflow row joined with its challenge.
func (r *ChallengeRepository) FindUserChallengeByID(ctx context.Context, id string) (*models.UserChallengeDetail, error) {
	const query = `SELECT uc.id, uc.user_id, uc.challenge_id, uc.status, uc.proof_note, uc.proof_url, uc.submitted_at, uc.verified_by, uc.verified_at, uc.enrolled_at, c.title, c.category, c.eco_points
FROM user_challenges uc
JOIN challenges c ON c.id = uc.challenge_id
WHERE uc.id = $1
LIMIT 1`
	var detail models.UserChallengeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user challenge by id: %w", err)
	}
	return &detail, nil
}

// ListForUser returns a user's challenge rows, newest enrollment first.
func (r *ChallengeRepository) ListForUser(ctx context.Context, userID string) ([]models.UserChallengeDetail, error) {
	const query = `SELECT uc.id, uc.user_id, uc.challenge_id, uc.status, uc.proof_note, uc.proof_url, uc.submitted_at, uc.verified_by, uc.verified_at, uc.enrolled_at, c.title, c.category, c.eco_points
FROM user_challenges uc
JOIN challenges c ON c.id = uc.challenge_id
WHERE uc.user_id = $1
ORDER BY uc.enrolled_at DESC`
	var details []models.UserChallengeDetail
	if err := r.db.SelectContext(ctx, &details, query, userID); err != nil {
		return nil, fmt.Errorf("list user challenges: %w", err)
	}
	return details, nil
}

// ListPendingVerification returns completed rows awaiting a verdict.
func (r *ChallengeRepository) ListPendingVerification(ctx context.Context, limit int) ([]models.UserChallengeDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const query = `SELECT uc.id, uc.user_id, uc.challenge_id, uc.status, uc.proof_note, uc.proof_url, uc.submitted_at, uc.verified_by, uc.verified_at, uc.enrolled_at, c.title, c.category, c.eco_points
FROM user_challenges uc
JOIN challenges c ON c.id = uc.challenge_id
WHERE uc.status = 'completed'
ORDER BY uc.submitted_at ASC
LIMIT $1`
	var details []models.UserChallengeDetail
	if err := r.db.SelectContext(ctx, &details, query, limit); err != nil {
		return nil, fmt.Errorf("list pending verifications: %w", err)
	}
	return details, nil
}

// Enroll creates the workflow row. The unique constraint on
// (user_id, challenge_id) rejects duplicate enrollments; the boolean
// reports whether a new row was written.
func (r *ChallengeRepository) Enroll(ctx context.Context, enrollment *models.UserChallenge) (bool, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.ChallengeEnrolled
	}
	const query = `INSERT INTO user_challenges (id, user_id, challenge_id, status, proof_note, enrolled_at) VALUES (:id, :user_id, :challenge_id, :status, :proof_note, :enrolled_at) ON CONFLICT (user_id, challenge_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return false, fmt.Errorf("enroll challenge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll challenge rows affected: %w", err)
	}
	return affected > 0, nil
}

// SubmitProof marks an enrolled row as completed with the proof payload.
func (r *ChallengeRepository) SubmitProof(ctx context.Context, id, proofNote string, proofURL *string, submittedAt time.Time) error {
	const query = `UPDATE user_challenges SET status = 'completed', proof_note = $2, proof_url = $3, submitted_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, proofNote, proofURL, submittedAt); err != nil {
		return fmt.Errorf("submit challenge proof: %w", err)
	}
	return nil
}

// Verify records the verdict and, when approved, appends the point event
// in the same transaction so the status change and the award land together.
func (r *ChallengeRepository) Verify(ctx context.Context, id string, status models.ChallengeStatus, verifiedBy string, verifiedAt time.Time, event *models.PointEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verify tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const updateQuery = `UPDATE user_challenges SET status = $2, verified_by = $3, verified_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, id, status, verifiedBy, verifiedAt); err != nil {
		return fmt.Errorf("update challenge status: %w", err)
	}

	if event != nil {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.AwardedAt.IsZero() {
			event.AwardedAt = verifiedAt
		}
		const eventQuery = `INSERT INTO point_events (id, user_id, points, activity_type, activity_id, reason_id, note, awarded_by, awarded_at) VALUES (:id, :user_id, :points, :activity_type, :activity_id, :reason_id, :note, :awarded_by, :awarded_at)`
		if _, err := tx.NamedExecContext(ctx, eventQuery, event); err != nil {
			return fmt.Errorf("insert challenge point event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit verify tx: %w", err)
	}
	return nil
}

// CountVerifiedByCategory counts a user's verified challenges in a category.
func (r *ChallengeRepository) CountVerifiedByCategory(ctx context.Context, userID, category string) (int, error) {
	const query = `SELECT COUNT(*) FROM user_challenges uc JOIN challenges c ON c.id = uc.challenge_id WHERE uc.user_id = $1 AND uc.status = 'verified' AND c.category = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, category); err != nil {
		return 0, fmt.Errorf("count verified by category: %w", err)
	}
	return count, nil
}

// CountVerifiedTitleLike counts a user's verified challenges whose title
// matches the given case-insensitive pattern.
func (r *ChallengeRepository) CountVerifiedTitleLike(ctx context.Context, userID, pattern string) (int, error) {
	const query = `SELECT COUNT(*) FROM user_challenges uc JOIN challenges c ON c.id = uc.challenge_id WHERE uc.user_id = $1 AND uc.status = 'verified' AND LOWER(c.title) LIKE $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, pattern); err != nil {
		return 0, fmt.Errorf("count verified title like: %w", err)
	}
	return count, nil
}
