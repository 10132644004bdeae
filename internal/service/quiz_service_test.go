package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	"github.com/greenquest/greenquest-api/internal/repository"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type fakeQuizRepo struct {
	detail    *repository.QuizDetail
	attempted bool
	attempt   *models.QuizAttempt
	event     *models.PointEvent
}

func (f *fakeQuizRepo) GetQuizDetail(ctx context.Context, quizID string) (*repository.QuizDetail, error) {
	return f.detail, nil
}

func (f *fakeQuizRepo) ListActive(ctx context.Context) ([]models.Quiz, error) {
	return nil, nil
}

func (f *fakeQuizRepo) HasAttempted(ctx context.Context, userID, quizID string) (bool, error) {
	return f.attempted, nil
}

func (f *fakeQuizRepo) SubmitAttempt(ctx context.Context, attempt *models.QuizAttempt, answers []models.QuizAnswer, event *models.PointEvent) error {
	attempt.ID = "att-1"
	f.attempt = attempt
	f.event = event
	return nil
}

// twoQuestionQuiz builds a quiz worth 10 marks split over two questions.
func twoQuestionQuiz() *repository.QuizDetail {
	return &repository.QuizDetail{
		Quiz: models.Quiz{ID: "q1", Title: "Recycling Basics", Active: true},
		Questions: []models.QuizQuestion{
			{ID: "qq1", QuizID: "q1", Marks: 5},
			{ID: "qq2", QuizID: "q1", Marks: 5},
		},
		Options: map[string][]models.QuizOption{
			"qq1": {{ID: "o1", QuestionID: "qq1", Correct: true}, {ID: "o2", QuestionID: "qq1"}},
			"qq2": {{ID: "o3", QuestionID: "qq2", Correct: true}, {ID: "o4", QuestionID: "qq2"}},
		},
	}
}

func newQuizServiceForTest(repo *fakeQuizRepo, evaluator *fakeEvaluator) *QuizService {
	return NewQuizService(repo, evaluator, NewMetricsService(), validator.New(), zap.NewNop())
}

func TestQuizServiceSubmitPerfectScore(t *testing.T) {
	repo := &fakeQuizRepo{detail: twoQuestionQuiz()}
	evaluator := &fakeEvaluator{badges: []string{models.BadgeQuizMaster}}
	svc := newQuizServiceForTest(repo, evaluator)

	result, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq2", OptionID: "o3"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, 100.0, result.Percentage)
	assert.Equal(t, 50, result.PointsAwarded)
	assert.Equal(t, []string{models.BadgeQuizMaster}, result.NewBadges)
	require.NotNil(t, repo.event)
	assert.Equal(t, models.ActivityQuiz, repo.event.ActivityType)
	assert.Equal(t, 50, repo.event.Points)
}

func TestQuizServiceSubmitHalfScore(t *testing.T) {
	repo := &fakeQuizRepo{detail: twoQuestionQuiz()}
	svc := newQuizServiceForTest(repo, &fakeEvaluator{})

	result, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq2", OptionID: "o4"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Score)
	assert.Equal(t, 50.0, result.Percentage)
	assert.Equal(t, 15, result.PointsAwarded)
}

func TestQuizServiceSubmitZeroScore(t *testing.T) {
	repo := &fakeQuizRepo{detail: twoQuestionQuiz()}
	svc := newQuizServiceForTest(repo, &fakeEvaluator{})

	result, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o2"},
			{QuestionID: "qq2", OptionID: "o4"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 5, result.PointsAwarded)
}

func TestQuizServiceSubmitAlreadyAttempted(t *testing.T) {
	repo := &fakeQuizRepo{detail: twoQuestionQuiz(), attempted: true}
	svc := newQuizServiceForTest(repo, &fakeEvaluator{})

	_, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq2", OptionID: "o3"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceSubmitInactiveQuiz(t *testing.T) {
	detail := twoQuestionQuiz()
	detail.Quiz.Active = false
	svc := newQuizServiceForTest(&fakeQuizRepo{detail: detail}, &fakeEvaluator{})

	_, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq2", OptionID: "o3"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceSubmitDuplicateAnswer(t *testing.T) {
	svc := newQuizServiceForTest(&fakeQuizRepo{detail: twoQuestionQuiz()}, &fakeEvaluator{})

	_, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq1", OptionID: "o2"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceSubmitUnknownOption(t *testing.T) {
	svc := newQuizServiceForTest(&fakeQuizRepo{detail: twoQuestionQuiz()}, &fakeEvaluator{})

	_, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq2", OptionID: "o1"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuizServiceSubmitTiersOnExactRatio(t *testing.T) {
	// 17999/20000 is 89.995%, which rounds to a reported 90.00 but must
	// stay in the 30-point tier.
	detail := &repository.QuizDetail{
		Quiz: models.Quiz{ID: "q1", Title: "Climate Systems", Active: true},
		Questions: []models.QuizQuestion{
			{ID: "qq1", QuizID: "q1", Marks: 17999},
			{ID: "qq2", QuizID: "q1", Marks: 2001},
		},
		Options: map[string][]models.QuizOption{
			"qq1": {{ID: "o1", QuestionID: "qq1", Correct: true}, {ID: "o2", QuestionID: "qq1"}},
			"qq2": {{ID: "o3", QuestionID: "qq2", Correct: true}, {ID: "o4", QuestionID: "qq2"}},
		},
	}
	repo := &fakeQuizRepo{detail: detail}
	svc := newQuizServiceForTest(repo, &fakeEvaluator{})

	result, err := svc.Submit(context.Background(), "u1", "q1", models.QuizSubmission{
		Answers: []models.QuizAnswerSubmission{
			{QuestionID: "qq1", OptionID: "o1"},
			{QuestionID: "qq2", OptionID: "o4"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 17999, result.Score)
	assert.Equal(t, 90.0, result.Percentage)
	assert.Equal(t, 30, result.PointsAwarded)
}

func TestPointsForPercentageTiers(t *testing.T) {
	cases := []struct {
		pct    float64
		points int
	}{
		{100, 50},
		{90, 50},
		{89.99, 30},
		{75, 30},
		{74.99, 15},
		{50, 15},
		{49.99, 5},
		{0, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.points, pointsForPercentage(tc.pct), "pct %v", tc.pct)
	}
}
