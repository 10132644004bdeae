package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	CompleteLesson(ctx context.Context, progress *models.LessonProgress, event *models.PointEvent) (bool, error)
	CountCompleted(ctx context.Context, userID string) (int, error)
}

// LessonConfig tunes lesson rewards.
type LessonConfig struct {
	CompletionPoints int
}

// LessonService awards fixed eco-points for finished lessons.
type LessonService struct {
	repo    lessonRepository
	badges  badgeEvaluator
	metrics *MetricsService
	logger  *zap.Logger
	cfg     LessonConfig
}

// NewLessonService constructs a LessonService instance.
func NewLessonService(repo lessonRepository, badges badgeEvaluator, metrics *MetricsService, logger *zap.Logger, cfg LessonConfig) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CompletionPoints <= 0 {
		cfg.CompletionPoints = 10
	}
	return &LessonService{repo: repo, badges: badges, metrics: metrics, logger: logger, cfg: cfg}
}

// Complete marks a lesson finished and writes its point event in one
// transaction. Completing the same lesson twice is a conflict; the first
// completion keeps its points.
func (s *LessonService) Complete(ctx context.Context, userID, lessonID string) (*models.LessonCompletionResult, error) {
	lesson, err := s.repo.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if !lesson.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson is not active")
	}

	progress := &models.LessonProgress{UserID: userID, LessonID: lessonID}
	event := &models.PointEvent{
		UserID:       userID,
		Points:       s.cfg.CompletionPoints,
		ActivityType: models.ActivityLesson,
		ActivityID:   &lessonID,
		Note:         "lesson completed: " + lesson.Title,
	}

	isNew, err := s.repo.CompleteLesson(ctx, progress, event)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete lesson")
	}
	if !isNew {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lesson already completed")
	}
	s.metrics.RecordPointsAwarded(models.ActivityLesson, s.cfg.CompletionPoints)

	newBadges := s.evaluateBadges(ctx, userID)

	return &models.LessonCompletionResult{
		LessonID:      lessonID,
		PointsAwarded: s.cfg.CompletionPoints,
		NewBadges:     newBadges,
	}, nil
}

func (s *LessonService) evaluateBadges(ctx context.Context, userID string) []string {
	if s.badges == nil {
		return nil
	}
	newBadges, err := s.badges.EvaluateEligibility(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed after lesson completion",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return newBadges
}
