package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type fakeLessonRepo struct {
	lesson *models.Lesson
	isNew  bool
	event  *models.PointEvent
}

func (f *fakeLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if f.lesson == nil {
		return nil, sql.ErrNoRows
	}
	return f.lesson, nil
}

func (f *fakeLessonRepo) CompleteLesson(ctx context.Context, progress *models.LessonProgress, event *models.PointEvent) (bool, error) {
	if f.isNew {
		f.event = event
	}
	return f.isNew, nil
}

func (f *fakeLessonRepo) CountCompleted(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func TestLessonServiceComplete(t *testing.T) {
	repo := &fakeLessonRepo{lesson: &models.Lesson{ID: "l1", Title: "Composting 101", Active: true}, isNew: true}
	svc := NewLessonService(repo, &fakeEvaluator{badges: []string{"Eco Starter"}}, NewMetricsService(), zap.NewNop(), LessonConfig{CompletionPoints: 10})

	result, err := svc.Complete(context.Background(), "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 10, result.PointsAwarded)
	assert.Equal(t, []string{"Eco Starter"}, result.NewBadges)
	require.NotNil(t, repo.event)
	assert.Equal(t, models.ActivityLesson, repo.event.ActivityType)
}

func TestLessonServiceCompleteTwice(t *testing.T) {
	repo := &fakeLessonRepo{lesson: &models.Lesson{ID: "l1", Active: true}, isNew: false}
	svc := NewLessonService(repo, &fakeEvaluator{}, NewMetricsService(), zap.NewNop(), LessonConfig{})

	_, err := svc.Complete(context.Background(), "u1", "l1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCompleteInactive(t *testing.T) {
	repo := &fakeLessonRepo{lesson: &models.Lesson{ID: "l1", Active: false}}
	svc := NewLessonService(repo, &fakeEvaluator{}, NewMetricsService(), zap.NewNop(), LessonConfig{})

	_, err := svc.Complete(context.Background(), "u1", "l1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCompleteUnknownLesson(t *testing.T) {
	svc := NewLessonService(&fakeLessonRepo{}, &fakeEvaluator{}, NewMetricsService(), zap.NewNop(), LessonConfig{})

	_, err := svc.Complete(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
