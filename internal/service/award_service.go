package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type pointsRepository interface {
	Insert(ctx context.Context, event *models.PointEvent) error
	TotalPoints(ctx context.Context, userID string) (int, error)
	TotalPointsSince(ctx context.Context, userID string, since time.Time) (int, error)
	History(ctx context.Context, userID string, limit, offset int) ([]models.PointEvent, int, error)
	BreakdownByActivityType(ctx context.Context, userID string) ([]models.ActivityBreakdown, error)
	FindReasonByKey(ctx context.Context, key string) (*models.PointReason, error)
}

type awardUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type badgeEvaluator interface {
	EvaluateEligibility(ctx context.Context, userID string) ([]string, error)
}

// AwardService appends ledger entries and triggers badge evaluation.
type AwardService struct {
	points    pointsRepository
	users     awardUserReader
	badges    badgeEvaluator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAwardService constructs an AwardService instance.
func NewAwardService(points pointsRepository, users awardUserReader, badges badgeEvaluator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AwardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AwardService{
		points:    points,
		users:     users,
		badges:    badges,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// AwardPoints appends a manual point event for a student and re-checks
// badge eligibility. The ledger write is the source of truth; a failed
// badge evaluation is logged and swallowed so the award stands.
func (s *AwardService) AwardPoints(ctx context.Context, awardedBy string, req models.AwardPointsRequest) (*models.AwardResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid award payload")
	}
	if !req.ActivityType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown activity type")
	}

	target, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target user")
	}
	if target.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "points can only be awarded to students")
	}
	if !target.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target account is inactive")
	}

	event := &models.PointEvent{
		UserID:       req.UserID,
		Points:       req.Points,
		ActivityType: req.ActivityType,
		ActivityID:   req.ActivityID,
		ReasonID:     s.resolveReason(ctx, req.ReasonKey),
		Note:         req.Note,
		AwardedBy:    &awardedBy,
	}
	if err := s.points.Insert(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append point event")
	}
	s.metrics.RecordPointsAwarded(event.ActivityType, event.Points)

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &awardedBy,
		Action:     models.AuditActionManualAward,
		Resource:   "points",
		ResourceID: &event.ID,
		NewValues:  []byte(`{"status":"awarded"}`),
	}); err != nil {
		s.logger.Warn("failed to record award audit log", zap.Error(err))
	}

	newBadges := s.evaluateBadges(ctx, req.UserID)
	return &models.AwardResult{Event: event, NewBadges: newBadges}, nil
}

// GetTotalPoints returns the user's all-time total.
func (s *AwardService) GetTotalPoints(ctx context.Context, userID string) (int, error) {
	total, err := s.points.TotalPoints(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total points")
	}
	return total, nil
}

// GetHistory returns a page of the user's ledger, newest first.
func (s *AwardService) GetHistory(ctx context.Context, userID string, page, pageSize int) ([]models.PointEvent, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	events, total, err := s.points.History(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load point history")
	}
	return events, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetSummary aggregates the totals a student dashboard needs.
func (s *AwardService) GetSummary(ctx context.Context, userID string) (*models.PointsSummary, error) {
	now := time.Now().UTC()
	total, err := s.points.TotalPoints(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total points")
	}
	week, err := s.points.TotalPointsSince(ctx, userID, models.PeriodWeek.Start(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total week points")
	}
	month, err := s.points.TotalPointsSince(ctx, userID, models.PeriodMonth.Start(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total month points")
	}
	year, err := s.points.TotalPointsSince(ctx, userID, models.PeriodYear.Start(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total year points")
	}
	breakdown, err := s.points.BreakdownByActivityType(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load point breakdown")
	}
	return &models.PointsSummary{
		UserID:      userID,
		TotalPoints: total,
		WeekPoints:  week,
		MonthPoints: month,
		YearPoints:  year,
		Breakdown:   breakdown,
	}, nil
}

// resolveReason maps a reason key to its catalog ID. An unknown key is
// recorded as a null reason, never an error.
func (s *AwardService) resolveReason(ctx context.Context, key string) *string {
	if key == "" {
		return nil
	}
	reason, err := s.points.FindReasonByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve point reason", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return &reason.ID
}

// evaluateBadges runs the badge engine after a committed ledger write.
// Evaluation failures must not undo the award, so errors are logged only.
func (s *AwardService) evaluateBadges(ctx context.Context, userID string) []string {
	if s.badges == nil {
		return nil
	}
	newBadges, err := s.badges.EvaluateEligibility(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed after point award",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return newBadges
}
