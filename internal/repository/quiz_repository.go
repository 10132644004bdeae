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

// QuizDetail bundles a quiz with its questions and options for grading.
type QuizDetail struct {
	Quiz      models.Quiz
	Questions []models.QuizQuestion
	Options   map[string][]models.QuizOption
}

// QuizRepository provides database access for quizzes and graded attempts.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository creates a new instance of QuizRepository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// GetQuizDetail loads a quiz with its questions and answer options.
func (r *QuizRepository) GetQuizDetail(ctx context.Context, quizID string) (*QuizDetail, error) {
	const quizQuery = `SELECT id, title, description, total_marks, active, created_at FROM quizzes WHERE id = $1 LIMIT 1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, quizQuery, quizID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	const questionQuery = `SELECT id, quiz_id, prompt, marks, position FROM quiz_questions WHERE quiz_id = $1 ORDER BY position ASC`
	var questions []models.QuizQuestion
	if err := r.db.SelectContext(ctx, &questions, questionQuery, quizID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}

	const optionQuery = `SELECT o.id, o.question_id, o.label, o.correct FROM quiz_options o JOIN quiz_questions q ON q.id = o.question_id WHERE q.quiz_id = $1 ORDER BY o.id ASC`
	var options []models.QuizOption
	if err := r.db.SelectContext(ctx, &options, optionQuery, quizID); err != nil {
		return nil, fmt.Errorf("list quiz options: %w", err)
	}

	detail := &QuizDetail{Quiz: quiz, Questions: questions, Options: make(map[string][]models.QuizOption, len(questions))}
	for _, opt := range options {
		detail.Options[opt.QuestionID] = append(detail.Options[opt.QuestionID], opt)
	}
	return detail, nil
}

// ListActive returns active quizzes ordered by creation time.
func (r *QuizRepository) ListActive(ctx context.Context) ([]models.Quiz, error) {
	const query = `SELECT id, title, description, total_marks, active, created_at FROM quizzes WHERE active = TRUE ORDER BY created_at DESC`
	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query); err != nil {
		return nil, fmt.Errorf("list active quizzes: %w", err)
	}
	return quizzes, nil
}

// HasAttempted reports whether the user already submitted this quiz.
func (r *QuizRepository) HasAttempted(ctx context.Context, userID, quizID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2)`
	var attempted bool
	if err := r.db.GetContext(ctx, &attempted, query, userID, quizID); err != nil {
		return false, fmt.Errorf("check quiz attempt: %w", err)
	}
	return attempted, nil
}

// SubmitAttempt stores the attempt, its graded answers and the resulting
// point event in a single transaction so a submission never lands
// half-recorded.
func (r *QuizRepository) SubmitAttempt(ctx context.Context, attempt *models.QuizAttempt, answers []models.QuizAnswer, event *models.PointEvent) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.AwardedAt.IsZero() {
		event.AwardedAt = attempt.SubmittedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit attempt tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const attemptQuery = `INSERT INTO quiz_attempts (id, quiz_id, user_id, score, total_marks, percentage, submitted_at) VALUES (:id, :quiz_id, :user_id, :score, :total_marks, :percentage, :submitted_at)`
	if _, err := tx.NamedExecContext(ctx, attemptQuery, attempt); err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}

	const answerQuery = `INSERT INTO quiz_answers (id, attempt_id, question_id, option_id, correct, marks_awarded) VALUES (:id, :attempt_id, :question_id, :option_id, :correct, :marks_awarded)`
	for i := range answers {
		if answers[i].ID == "" {
			answers[i].ID = uuid.NewString()
		}
		answers[i].AttemptID = attempt.ID
		if _, err := tx.NamedExecContext(ctx, answerQuery, answers[i]); err != nil {
			return fmt.Errorf("insert quiz answer: %w", err)
		}
	}

	const eventQuery = `INSERT INTO point_events (id, user_id, points, activity_type, activity_id, reason_id, note, awarded_by, awarded_at) VALUES (:id, :user_id, :points, :activity_type, :activity_id, :reason_id, :note, :awarded_by, :awarded_at)`
	if _, err := tx.NamedExecContext(ctx, eventQuery, event); err != nil {
		return fmt.Errorf("insert quiz point event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submit attempt tx: %w", err)
	}
	return nil
}

// CountPerfectAttempts counts attempts where the user scored 100 percent.
func (r *QuizRepository) CountPerfectAttempts(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND percentage >= 100`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count perfect attempts: %w", err)
	}
	return count, nil
}

// CountAttemptsAtLeast counts attempts at or above a percentage score.
func (r *QuizRepository) CountAttemptsAtLeast(ctx context.Context, userID string, percentage float64) (int, error) {
	const query = `SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND percentage >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, percentage); err != nil {
		return 0, fmt.Errorf("count attempts at least: %w", err)
	}
	return count, nil
}
