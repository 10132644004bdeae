package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type fakeLeaderboardRepo struct {
	entries []models.LeaderboardEntry
	rank    *models.UserRank
	calls   int
	lastQ   models.LeaderboardQuery
}

func (f *fakeLeaderboardRepo) TopStudents(ctx context.Context, q models.LeaderboardQuery) ([]models.LeaderboardEntry, error) {
	f.calls++
	f.lastQ = q
	return f.entries, nil
}

func (f *fakeLeaderboardRepo) UserRank(ctx context.Context, q models.LeaderboardQuery, userID string) (*models.UserRank, error) {
	f.lastQ = q
	return f.rank, nil
}

// memoryCache is an in-process CacheRepository for tests.
type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.data = make(map[string][]byte)
	return nil
}

func newLeaderboardServiceForTest(repo *fakeLeaderboardRepo, cacheRepo CacheRepository) *LeaderboardService {
	var cacheSvc *CacheService
	if cacheRepo != nil {
		cacheSvc = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	} else {
		cacheSvc = NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	}
	return NewLeaderboardService(repo, cacheSvc, zap.NewNop(), LeaderboardConfig{DefaultLimit: 10, MaxLimit: 50})
}

func TestLeaderboardServiceCacheAside(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []models.LeaderboardEntry{{Rank: 1, UserID: "u1", FullName: "Alice", TotalPoints: 200}}}
	svc := newLeaderboardServiceForTest(repo, &memoryCache{})

	first, err := svc.GetLeaderboard(context.Background(), models.ScopeGlobal, "", models.PeriodAll, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.calls)

	second, err := svc.GetLeaderboard(context.Background(), models.ScopeGlobal, "", models.PeriodAll, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// Second read is served from cache.
	assert.Equal(t, 1, repo.calls)
}

func TestLeaderboardServiceDefaultsAndClamp(t *testing.T) {
	repo := &fakeLeaderboardRepo{}
	svc := newLeaderboardServiceForTest(repo, nil)

	_, err := svc.GetLeaderboard(context.Background(), "", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeGlobal, repo.lastQ.Scope)
	assert.Equal(t, models.PeriodAll, repo.lastQ.Period)
	assert.Equal(t, 10, repo.lastQ.Limit)

	_, err = svc.GetLeaderboard(context.Background(), models.ScopeGlobal, "", models.PeriodAll, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastQ.Limit)
}

func TestLeaderboardServiceScopeIDRequired(t *testing.T) {
	svc := newLeaderboardServiceForTest(&fakeLeaderboardRepo{}, nil)

	_, err := svc.GetLeaderboard(context.Background(), models.ScopeSchool, "", models.PeriodAll, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaderboardServiceUnknownScope(t *testing.T) {
	svc := newLeaderboardServiceForTest(&fakeLeaderboardRepo{}, nil)

	_, err := svc.GetLeaderboard(context.Background(), "planet", "", models.PeriodAll, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaderboardServiceEmptyStandings(t *testing.T) {
	svc := newLeaderboardServiceForTest(&fakeLeaderboardRepo{}, nil)

	entries, err := svc.GetLeaderboard(context.Background(), models.ScopeGlobal, "", models.PeriodAll, 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLeaderboardServiceUserRankZero(t *testing.T) {
	repo := &fakeLeaderboardRepo{rank: &models.UserRank{UserID: "u9", Rank: 0}}
	svc := newLeaderboardServiceForTest(repo, nil)

	rank, err := svc.GetUserRank(context.Background(), "u9", models.ScopeGlobal, "", models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 0, rank.Rank)
}
