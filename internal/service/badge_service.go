package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

// Count thresholds for rule-driven badges.
const (
	ecoNoviceLessonCount       = 1
	ecoScholarLessonCount      = 25
	quizMasterPerfectAttempts  = 10
	quizAceMinPercentage       = 90.0
	quizAceAttempts            = 5
	greenThumbCategory         = "plants"
	greenThumbVerifiedCount    = 5
	plantWhispererPattern      = "%plant%"
	plantWhispererCount        = 3
	categoryBadgeVerifiedCount = 5
	communityLeaderCategory    = "community"
	communityLeaderCount       = 3
)

type badgeRepository interface {
	ListCatalog(ctx context.Context) ([]models.Badge, error)
	FindByName(ctx context.Context, name string) (*models.Badge, error)
	EligiblePointBadges(ctx context.Context, userID string, totalPoints int) ([]models.Badge, error)
	InsertUserBadge(ctx context.Context, grant *models.UserBadge) (bool, error)
	ListUserBadges(ctx context.Context, userID string) ([]models.UserBadgeDetail, error)
	RecentlyEarned(ctx context.Context, userID string, since time.Time) ([]models.UserBadgeDetail, error)
	HasBadge(ctx context.Context, userID, badgeName string) (bool, error)
}

type badgePointsReader interface {
	TotalPoints(ctx context.Context, userID string) (int, error)
}

type badgeQuizReader interface {
	CountPerfectAttempts(ctx context.Context, userID string) (int, error)
	CountAttemptsAtLeast(ctx context.Context, userID string, percentage float64) (int, error)
}

type badgeChallengeReader interface {
	CountVerifiedByCategory(ctx context.Context, userID, category string) (int, error)
	CountVerifiedTitleLike(ctx context.Context, userID, pattern string) (int, error)
}

type badgeLessonReader interface {
	CountCompleted(ctx context.Context, userID string) (int, error)
}

// BadgeConfig tunes badge behaviour.
type BadgeConfig struct {
	RecentWindow time.Duration
}

// BadgeService owns the badge catalog and the award evaluation engine.
type BadgeService struct {
	repo       badgeRepository
	points     badgePointsReader
	quizzes    badgeQuizReader
	challenges badgeChallengeReader
	lessons    badgeLessonReader
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        BadgeConfig
}

// NewBadgeService constructs a BadgeService instance.
func NewBadgeService(repo badgeRepository, points badgePointsReader, quizzes badgeQuizReader, challenges badgeChallengeReader, lessons badgeLessonReader, metrics *MetricsService, logger *zap.Logger, cfg BadgeConfig) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 5 * time.Minute
	}
	return &BadgeService{
		repo:       repo,
		points:     points,
		quizzes:    quizzes,
		challenges: challenges,
		lessons:    lessons,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// ListCatalog returns every badge definition.
func (s *BadgeService) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load badge catalog")
	}
	return badges, nil
}

// ListUserBadges returns a user's earned badges, newest first.
func (s *BadgeService) ListUserBadges(ctx context.Context, userID string) ([]models.UserBadgeDetail, error) {
	badges, err := s.repo.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user badges")
	}
	return badges, nil
}

// RecentlyEarned returns badges granted within the configured window,
// so clients can surface "just unlocked" notifications.
func (s *BadgeService) RecentlyEarned(ctx context.Context, userID string) ([]models.UserBadgeDetail, error) {
	since := time.Now().UTC().Add(-s.cfg.RecentWindow)
	badges, err := s.repo.RecentlyEarned(ctx, userID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent badges")
	}
	return badges, nil
}

// AwardBadgeByName grants the named badge directly. The grant is
// idempotent at the database level; awarding a badge the user already
// holds returns a conflict.
func (s *BadgeService) AwardBadgeByName(ctx context.Context, userID, badgeName string) (*models.UserBadge, error) {
	badge, err := s.repo.FindByName(ctx, badgeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownBadge, "badge not found in catalog")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load badge")
	}

	grant := &models.UserBadge{UserID: userID, BadgeID: badge.ID}
	granted, err := s.repo.InsertUserBadge(ctx, grant)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant badge")
	}
	if !granted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "badge already held")
	}

	s.metrics.RecordBadgeGranted(badge.Name)
	s.logger.Info("badge granted",
		zap.String("user_id", userID),
		zap.String("badge", badge.Name))
	return grant, nil
}

// namedRule is a count-threshold badge predicate evaluated in order.
type namedRule struct {
	badgeName string
	met       func(ctx context.Context, userID string) (bool, error)
}

func (s *BadgeService) categoryRule(badgeName, category string, threshold int) namedRule {
	return namedRule{
		badgeName: badgeName,
		met: func(ctx context.Context, userID string) (bool, error) {
			count, err := s.challenges.CountVerifiedByCategory(ctx, userID, category)
			return count >= threshold, err
		},
	}
}

func (s *BadgeService) namedRules() []namedRule {
	return []namedRule{
		{
			badgeName: models.BadgeEcoNovice,
			met: func(ctx context.Context, userID string) (bool, error) {
				count, err := s.lessons.CountCompleted(ctx, userID)
				return count >= ecoNoviceLessonCount, err
			},
		},
		{
			badgeName: models.BadgeEcoScholar,
			met: func(ctx context.Context, userID string) (bool, error) {
				count, err := s.lessons.CountCompleted(ctx, userID)
				return count >= ecoScholarLessonCount, err
			},
		},
		s.categoryRule(models.BadgeGreenThumb, greenThumbCategory, greenThumbVerifiedCount),
		{
			badgeName: models.BadgePlantWhisperer,
			met: func(ctx context.Context, userID string) (bool, error) {
				count, err := s.challenges.CountVerifiedTitleLike(ctx, userID, plantWhispererPattern)
				return count >= plantWhispererCount, err
			},
		},
		s.categoryRule(models.BadgeWaterWarrior, "water", categoryBadgeVerifiedCount),
		s.categoryRule(models.BadgeEnergyExpert, "energy", categoryBadgeVerifiedCount),
		s.categoryRule(models.BadgeRecyclingChampion, "recycling", categoryBadgeVerifiedCount),
		s.categoryRule(models.BadgeCommunityLeader, communityLeaderCategory, communityLeaderCount),
		{
			badgeName: models.BadgeQuizMaster,
			met: func(ctx context.Context, userID string) (bool, error) {
				count, err := s.quizzes.CountPerfectAttempts(ctx, userID)
				return count >= quizMasterPerfectAttempts, err
			},
		},
		{
			badgeName: models.BadgeQuizAce,
			met: func(ctx context.Context, userID string) (bool, error) {
				count, err := s.quizzes.CountAttemptsAtLeast(ctx, userID, quizAceMinPercentage)
				return count >= quizAceAttempts, err
			},
		},
	}
}

// EvaluateEligibility re-checks every badge rule for the user and grants
// whatever is newly earned. Point-threshold badges come first, ordered by
// threshold, then the named count rules in a fixed order. The returned
// slice holds the names of badges granted by this evaluation.
func (s *BadgeService) EvaluateEligibility(ctx context.Context, userID string) ([]string, error) {
	total, err := s.points.TotalPoints(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total points")
	}

	var granted []string

	eligible, err := s.repo.EligiblePointBadges(ctx, userID, total)
	if err != nil {
		return granted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible badges")
	}
	for _, badge := range eligible {
		isNew, err := s.repo.InsertUserBadge(ctx, &models.UserBadge{UserID: userID, BadgeID: badge.ID})
		if err != nil {
			return granted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant badge")
		}
		if isNew {
			granted = append(granted, badge.Name)
			s.metrics.RecordBadgeGranted(badge.Name)
		}
	}

	for _, rule := range s.namedRules() {
		held, err := s.repo.HasBadge(ctx, userID, rule.badgeName)
		if err != nil {
			return granted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check held badge")
		}
		if held {
			continue
		}
		met, err := rule.met(ctx, userID)
		if err != nil {
			return granted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate badge rule")
		}
		if !met {
			continue
		}
		badge, err := s.repo.FindByName(ctx, rule.badgeName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Rule configured but badge row not seeded. Skip rather than fail the award.
				s.logger.Warn("badge rule has no catalog row", zap.String("badge", rule.badgeName))
				continue
			}
			return granted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load badge")
		}
		isNew, err := s.repo.InsertUserBadge(ctx, &models.UserBadge{UserID: userID, BadgeID: badge.ID})
		if err != nil {
			return granted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant badge")
		}
		if isNew {
			granted = append(granted, badge.Name)
			s.metrics.RecordBadgeGranted(badge.Name)
		}
	}

	if len(granted) > 0 {
		s.logger.Info("badges granted by evaluation",
			zap.String("user_id", userID),
			zap.Strings("badges", granted))
	}
	return granted, nil
}
