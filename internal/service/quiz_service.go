package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	"github.com/greenquest/greenquest-api/internal/repository"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

// Point tiers for graded quizzes, keyed on the percentage score.
const (
	quizTierTopPct    = 90.0
	quizTierHighPct   = 75.0
	quizTierMidPct    = 50.0
	quizTierTopPoints = 50
	quizTierHighPts   = 30
	quizTierMidPoints = 15
	quizTierBasePts   = 5
)

type quizRepository interface {
	GetQuizDetail(ctx context.Context, quizID string) (*repository.QuizDetail, error)
	ListActive(ctx context.Context) ([]models.Quiz, error)
	HasAttempted(ctx context.Context, userID, quizID string) (bool, error)
	SubmitAttempt(ctx context.Context, attempt *models.QuizAttempt, answers []models.QuizAnswer, event *models.PointEvent) error
}

// QuizService grades submissions and rewards eco-points.
type QuizService struct {
	repo      quizRepository
	badges    badgeEvaluator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs a QuizService instance.
func NewQuizService(repo quizRepository, badges badgeEvaluator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuizService{repo: repo, badges: badges, metrics: metrics, validator: validate, logger: logger}
}

// ListActive returns quizzes open for submission.
func (s *QuizService) ListActive(ctx context.Context) ([]models.Quiz, error) {
	quizzes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quizzes")
	}
	return quizzes, nil
}

// pointsForPercentage maps a percentage score to its eco-point tier.
func pointsForPercentage(pct float64) int {
	switch {
	case pct >= quizTierTopPct:
		return quizTierTopPoints
	case pct >= quizTierHighPct:
		return quizTierHighPts
	case pct >= quizTierMidPct:
		return quizTierMidPoints
	default:
		return quizTierBasePts
	}
}

// Submit grades a quiz submission, persists the attempt with its point
// event in one transaction, then re-checks badge eligibility. Each quiz
// accepts a single attempt per student.
func (s *QuizService) Submit(ctx context.Context, userID, quizID string, req models.QuizSubmission) (*models.QuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz submission")
	}

	detail, err := s.repo.GetQuizDetail(ctx, quizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}
	if !detail.Quiz.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quiz is not active")
	}

	attempted, err := s.repo.HasAttempted(ctx, userID, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior attempt")
	}
	if attempted {
		return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "quiz already submitted")
	}

	answers, score, totalMarks, err := s.grade(detail, req.Answers)
	if err != nil {
		return nil, err
	}

	var rawPercentage, percentage float64
	if totalMarks > 0 {
		rawPercentage = float64(score) / float64(totalMarks) * 100
		// Tier on the exact ratio; round only the reported figure so a
		// score just under a boundary cannot round into the higher tier.
		percentage = math.Round(rawPercentage*100) / 100
	}
	points := pointsForPercentage(rawPercentage)

	attempt := &models.QuizAttempt{
		QuizID:     quizID,
		UserID:     userID,
		Score:      score,
		TotalMarks: totalMarks,
		Percentage: percentage,
	}
	event := &models.PointEvent{
		UserID:       userID,
		Points:       points,
		ActivityType: models.ActivityQuiz,
		ActivityID:   &quizID,
		Note:         "quiz completed: " + detail.Quiz.Title,
	}

	if err := s.repo.SubmitAttempt(ctx, attempt, answers, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record quiz attempt")
	}
	s.metrics.RecordQuizSubmission()
	s.metrics.RecordPointsAwarded(models.ActivityQuiz, points)

	newBadges := s.evaluateBadges(ctx, userID)

	return &models.QuizResult{
		AttemptID:     attempt.ID,
		QuizID:        quizID,
		Score:         score,
		TotalMarks:    totalMarks,
		Percentage:    percentage,
		PointsAwarded: points,
		NewBadges:     newBadges,
	}, nil
}

// grade checks the answer set against the quiz definition. Every question
// must be answered exactly once with one of its own options.
func (s *QuizService) grade(detail *repository.QuizDetail, submissions []models.QuizAnswerSubmission) ([]models.QuizAnswer, int, int, error) {
	if len(submissions) != len(detail.Questions) {
		return nil, 0, 0, appErrors.Clone(appErrors.ErrValidation, "every question must be answered exactly once")
	}

	questionMarks := make(map[string]int, len(detail.Questions))
	totalMarks := 0
	for _, q := range detail.Questions {
		questionMarks[q.ID] = q.Marks
		totalMarks += q.Marks
	}

	answered := make(map[string]bool, len(submissions))
	answers := make([]models.QuizAnswer, 0, len(submissions))
	score := 0

	for _, sub := range submissions {
		marks, ok := questionMarks[sub.QuestionID]
		if !ok {
			return nil, 0, 0, appErrors.Clone(appErrors.ErrValidation, "answer references an unknown question")
		}
		if answered[sub.QuestionID] {
			return nil, 0, 0, appErrors.Clone(appErrors.ErrValidation, "question answered more than once")
		}
		answered[sub.QuestionID] = true

		var option *models.QuizOption
		for i := range detail.Options[sub.QuestionID] {
			if detail.Options[sub.QuestionID][i].ID == sub.OptionID {
				option = &detail.Options[sub.QuestionID][i]
				break
			}
		}
		if option == nil {
			return nil, 0, 0, appErrors.Clone(appErrors.ErrValidation, "answer references an unknown option")
		}

		awarded := 0
		if option.Correct {
			awarded = marks
			score += marks
		}
		answers = append(answers, models.QuizAnswer{
			QuestionID:   sub.QuestionID,
			OptionID:     sub.OptionID,
			Correct:      option.Correct,
			MarksAwarded: awarded,
		})
	}

	return answers, score, totalMarks, nil
}

func (s *QuizService) evaluateBadges(ctx context.Context, userID string) []string {
	if s.badges == nil {
		return nil
	}
	newBadges, err := s.badges.EvaluateEligibility(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed after quiz submission",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return newBadges
}
