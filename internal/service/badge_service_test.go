package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type fakeBadgeRepo struct {
	catalog    map[string]*models.Badge
	eligible   []models.Badge
	held       map[string]bool
	granted    []string
	duplicates map[string]bool
}

func (f *fakeBadgeRepo) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	var out []models.Badge
	for _, b := range f.catalog {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBadgeRepo) FindByName(ctx context.Context, name string) (*models.Badge, error) {
	b, ok := f.catalog[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

func (f *fakeBadgeRepo) EligiblePointBadges(ctx context.Context, userID string, totalPoints int) ([]models.Badge, error) {
	return f.eligible, nil
}

func (f *fakeBadgeRepo) InsertUserBadge(ctx context.Context, grant *models.UserBadge) (bool, error) {
	if f.duplicates[grant.BadgeID] {
		return false, nil
	}
	f.granted = append(f.granted, grant.BadgeID)
	return true, nil
}

func (f *fakeBadgeRepo) ListUserBadges(ctx context.Context, userID string) ([]models.UserBadgeDetail, error) {
	return nil, nil
}

func (f *fakeBadgeRepo) RecentlyEarned(ctx context.Context, userID string, since time.Time) ([]models.UserBadgeDetail, error) {
	return nil, nil
}

func (f *fakeBadgeRepo) HasBadge(ctx context.Context, userID, badgeName string) (bool, error) {
	return f.held[badgeName], nil
}

type fakePointsReader struct{ total int }

func (f *fakePointsReader) TotalPoints(ctx context.Context, userID string) (int, error) {
	return f.total, nil
}

type fakeQuizReader struct {
	perfect int
	atLeast int
}

func (f *fakeQuizReader) CountPerfectAttempts(ctx context.Context, userID string) (int, error) {
	return f.perfect, nil
}

func (f *fakeQuizReader) CountAttemptsAtLeast(ctx context.Context, userID string, percentage float64) (int, error) {
	return f.atLeast, nil
}

type fakeChallengeReader struct {
	byCategory map[string]int
	byTitle    int
}

func (f *fakeChallengeReader) CountVerifiedByCategory(ctx context.Context, userID, category string) (int, error) {
	return f.byCategory[category], nil
}

func (f *fakeChallengeReader) CountVerifiedTitleLike(ctx context.Context, userID, pattern string) (int, error) {
	return f.byTitle, nil
}

type fakeLessonReader struct{ completed int }

func (f *fakeLessonReader) CountCompleted(ctx context.Context, userID string) (int, error) {
	return f.completed, nil
}

func newBadgeServiceForTest(repo *fakeBadgeRepo, points *fakePointsReader, quizzes *fakeQuizReader, challenges *fakeChallengeReader) *BadgeService {
	return newBadgeServiceWithLessons(repo, points, quizzes, challenges, &fakeLessonReader{})
}

func newBadgeServiceWithLessons(repo *fakeBadgeRepo, points *fakePointsReader, quizzes *fakeQuizReader, challenges *fakeChallengeReader, lessons *fakeLessonReader) *BadgeService {
	return NewBadgeService(repo, points, quizzes, challenges, lessons, NewMetricsService(), zap.NewNop(), BadgeConfig{})
}

// ruleBadgeCatalog seeds a catalog row for every count-rule badge so a
// grant is possible whenever its predicate holds.
func ruleBadgeCatalog() map[string]*models.Badge {
	names := []string{
		models.BadgeEcoNovice,
		models.BadgeEcoScholar,
		models.BadgeGreenThumb,
		models.BadgePlantWhisperer,
		models.BadgeWaterWarrior,
		models.BadgeEnergyExpert,
		models.BadgeRecyclingChampion,
		models.BadgeCommunityLeader,
		models.BadgeQuizMaster,
		models.BadgeQuizAce,
	}
	catalog := make(map[string]*models.Badge, len(names))
	for i, name := range names {
		catalog[name] = &models.Badge{ID: fmt.Sprintf("rb%d", i), Name: name}
	}
	return catalog
}

func TestBadgeServiceEvaluateGrantsThresholdBadges(t *testing.T) {
	bronze, silver := 100, 250
	repo := &fakeBadgeRepo{
		catalog: map[string]*models.Badge{},
		eligible: []models.Badge{
			{ID: "b1", Name: "Eco Starter", PointsRequired: &bronze},
			{ID: "b2", Name: "Eco Hero", PointsRequired: &silver},
		},
		held:       map[string]bool{},
		duplicates: map[string]bool{},
	}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{total: 300}, &fakeQuizReader{}, &fakeChallengeReader{})

	granted, err := svc.EvaluateEligibility(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Eco Starter", "Eco Hero"}, granted)
}

func TestBadgeServiceEvaluateSkipsHeldBadges(t *testing.T) {
	bronze := 100
	repo := &fakeBadgeRepo{
		catalog:    map[string]*models.Badge{},
		eligible:   []models.Badge{{ID: "b1", Name: "Eco Starter", PointsRequired: &bronze}},
		held:       map[string]bool{},
		duplicates: map[string]bool{"b1": true},
	}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{total: 150}, &fakeQuizReader{}, &fakeChallengeReader{})

	granted, err := svc.EvaluateEligibility(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, granted)
}

func TestBadgeServiceEvaluateNamedRules(t *testing.T) {
	repo := &fakeBadgeRepo{
		catalog: map[string]*models.Badge{
			models.BadgeQuizMaster: {ID: "qm", Name: models.BadgeQuizMaster},
			models.BadgeQuizAce:    {ID: "qa", Name: models.BadgeQuizAce},
		},
		held:       map[string]bool{models.BadgeQuizAce: true},
		duplicates: map[string]bool{},
	}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{}, &fakeQuizReader{perfect: 10, atLeast: 10}, &fakeChallengeReader{})

	granted, err := svc.EvaluateEligibility(context.Background(), "u1")
	require.NoError(t, err)
	// Quiz Ace is already held so only Quiz Master lands.
	assert.Equal(t, []string{models.BadgeQuizMaster}, granted)
}

func TestBadgeServiceEvaluateSkipsUnseededRule(t *testing.T) {
	repo := &fakeBadgeRepo{
		catalog:    map[string]*models.Badge{},
		held:       map[string]bool{},
		duplicates: map[string]bool{},
	}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{}, &fakeQuizReader{perfect: 12}, &fakeChallengeReader{byCategory: map[string]int{"plants": 6}})

	granted, err := svc.EvaluateEligibility(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, granted)
}

func TestBadgeServiceEvaluateBelowThresholds(t *testing.T) {
	repo := &fakeBadgeRepo{
		catalog: map[string]*models.Badge{
			models.BadgeQuizMaster:     {ID: "qm", Name: models.BadgeQuizMaster},
			models.BadgeGreenThumb:     {ID: "gt", Name: models.BadgeGreenThumb},
			models.BadgePlantWhisperer: {ID: "pw", Name: models.BadgePlantWhisperer},
		},
		held:       map[string]bool{},
		duplicates: map[string]bool{},
	}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{}, &fakeQuizReader{perfect: 9}, &fakeChallengeReader{byCategory: map[string]int{"plants": 4}, byTitle: 2})

	granted, err := svc.EvaluateEligibility(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, granted)
}

func TestBadgeServiceEvaluateAllCountRules(t *testing.T) {
	repo := &fakeBadgeRepo{
		catalog:    ruleBadgeCatalog(),
		held:       map[string]bool{},
		duplicates: map[string]bool{},
	}
	challenges := &fakeChallengeReader{
		byCategory: map[string]int{
			"plants":    5,
			"water":     5,
			"energy":    5,
			"recycling": 5,
			"community": 3,
		},
		byTitle: 3,
	}
	svc := newBadgeServiceWithLessons(repo, &fakePointsReader{}, &fakeQuizReader{perfect: 10, atLeast: 5}, challenges, &fakeLessonReader{completed: 25})

	granted, err := svc.EvaluateEligibility(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		models.BadgeEcoNovice,
		models.BadgeEcoScholar,
		models.BadgeGreenThumb,
		models.BadgePlantWhisperer,
		models.BadgeWaterWarrior,
		models.BadgeEnergyExpert,
		models.BadgeRecyclingChampion,
		models.BadgeCommunityLeader,
		models.BadgeQuizMaster,
		models.BadgeQuizAce,
	}, granted)
}

func TestBadgeServiceLessonRuleBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		want      []string
	}{
		{"no lessons", 0, nil},
		{"first lesson", 1, []string{models.BadgeEcoNovice}},
		{"below scholar", 24, []string{models.BadgeEcoNovice}},
		{"scholar reached", 25, []string{models.BadgeEcoNovice, models.BadgeEcoScholar}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeBadgeRepo{
				catalog:    ruleBadgeCatalog(),
				held:       map[string]bool{},
				duplicates: map[string]bool{},
			}
			svc := newBadgeServiceWithLessons(repo, &fakePointsReader{}, &fakeQuizReader{}, &fakeChallengeReader{}, &fakeLessonReader{completed: tc.completed})

			granted, err := svc.EvaluateEligibility(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, granted)
		})
	}
}

func TestBadgeServiceCategoryRuleBoundaries(t *testing.T) {
	cases := []struct {
		name       string
		byCategory map[string]int
		want       []string
	}{
		{"below water threshold", map[string]int{"water": 4}, nil},
		{"water reached", map[string]int{"water": 5}, []string{models.BadgeWaterWarrior}},
		{"below energy threshold", map[string]int{"energy": 4}, nil},
		{"energy reached", map[string]int{"energy": 5}, []string{models.BadgeEnergyExpert}},
		{"below recycling threshold", map[string]int{"recycling": 4}, nil},
		{"recycling reached", map[string]int{"recycling": 5}, []string{models.BadgeRecyclingChampion}},
		{"below community threshold", map[string]int{"community": 2}, nil},
		{"community reached", map[string]int{"community": 3}, []string{models.BadgeCommunityLeader}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeBadgeRepo{
				catalog:    ruleBadgeCatalog(),
				held:       map[string]bool{},
				duplicates: map[string]bool{},
			}
			svc := newBadgeServiceForTest(repo, &fakePointsReader{}, &fakeQuizReader{}, &fakeChallengeReader{byCategory: tc.byCategory})

			granted, err := svc.EvaluateEligibility(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, granted)
		})
	}
}

func TestBadgeServiceAwardByNameUnknown(t *testing.T) {
	repo := &fakeBadgeRepo{catalog: map[string]*models.Badge{}, duplicates: map[string]bool{}}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{}, &fakeQuizReader{}, &fakeChallengeReader{})

	_, err := svc.AwardBadgeByName(context.Background(), "u1", "Mystery Badge")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownBadge.Code, appErrors.FromError(err).Code)
}

func TestBadgeServiceAwardByNameAlreadyHeld(t *testing.T) {
	repo := &fakeBadgeRepo{
		catalog:    map[string]*models.Badge{"Eco Starter": {ID: "b1", Name: "Eco Starter"}},
		duplicates: map[string]bool{"b1": true},
	}
	svc := newBadgeServiceForTest(repo, &fakePointsReader{}, &fakeQuizReader{}, &fakeChallengeReader{})

	_, err := svc.AwardBadgeByName(context.Background(), "u1", "Eco Starter")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
