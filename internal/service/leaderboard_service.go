package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type leaderboardRepository interface {
	TopStudents(ctx context.Context, q models.LeaderboardQuery) ([]models.LeaderboardEntry, error)
	UserRank(ctx context.Context, q models.LeaderboardQuery, userID string) (*models.UserRank, error)
}

// LeaderboardConfig tunes leaderboard reads.
type LeaderboardConfig struct {
	CacheTTL     time.Duration
	DefaultLimit int
	MaxLimit     int
}

// LeaderboardService serves ranked standings with a cache-aside layer.
// Standings are recomputed from the ledger on every cache miss; nothing
// is ever incremented in place.
type LeaderboardService struct {
	repo   leaderboardRepository
	cache  *CacheService
	logger *zap.Logger
	cfg    LeaderboardConfig
}

// NewLeaderboardService constructs a LeaderboardService instance.
func NewLeaderboardService(repo leaderboardRepository, cache *CacheService, logger *zap.Logger, cfg LeaderboardConfig) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	return &LeaderboardService{repo: repo, cache: cache, logger: logger, cfg: cfg}
}

func (s *LeaderboardService) buildQuery(scope models.LeaderboardScope, scopeID string, period models.Period, limit int) (models.LeaderboardQuery, error) {
	if scope == "" {
		scope = models.ScopeGlobal
	}
	if !scope.Valid() {
		return models.LeaderboardQuery{}, appErrors.Clone(appErrors.ErrValidation, "unknown leaderboard scope")
	}
	if scope != models.ScopeGlobal && scopeID == "" {
		return models.LeaderboardQuery{}, appErrors.Clone(appErrors.ErrValidation, "scope id is required for school and class leaderboards")
	}
	if period == "" {
		period = models.PeriodAll
	}
	if !period.Valid() {
		return models.LeaderboardQuery{}, appErrors.Clone(appErrors.ErrValidation, "unknown leaderboard period")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return models.LeaderboardQuery{
		Scope:    scope,
		ScopeID:  scopeID,
		Period:   period,
		Limit:    limit,
		Anchored: time.Now().UTC(),
	}, nil
}

// GetLeaderboard returns ranked standings for the requested window.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, scope models.LeaderboardScope, scopeID string, period models.Period, limit int) ([]models.LeaderboardEntry, error) {
	q, err := s.buildQuery(scope, scopeID, period, limit)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%s:%s:%d", q.Scope, q.ScopeID, q.Period, q.Limit)
	var cached []models.LeaderboardEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	entries, err := s.repo.TopStudents(ctx, q)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	if err := s.cache.Set(ctx, cacheKey, entries, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache leaderboard", zap.String("key", cacheKey), zap.Error(err))
	}
	return entries, nil
}

// GetUserRank returns a single student's standing. Rank is 0 when the
// student has no qualifying points in the window.
func (s *LeaderboardService) GetUserRank(ctx context.Context, userID string, scope models.LeaderboardScope, scopeID string, period models.Period) (*models.UserRank, error) {
	q, err := s.buildQuery(scope, scopeID, period, s.cfg.DefaultLimit)
	if err != nil {
		return nil, err
	}
	rank, err := s.repo.UserRank(ctx, q, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve rank")
	}
	return rank, nil
}

// Snapshot recomputes standings without the cache, for exports.
func (s *LeaderboardService) Snapshot(ctx context.Context, scope models.LeaderboardScope, scopeID string, period models.Period, limit int) ([]models.LeaderboardEntry, error) {
	q, err := s.buildQuery(scope, scopeID, period, limit)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.TopStudents(ctx, q)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	return entries, nil
}
