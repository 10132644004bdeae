package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
)

type fakeLedger struct {
	events  []*models.PointEvent
	reasons map[string]*models.PointReason
	total   int
}

func (f *fakeLedger) Insert(ctx context.Context, event *models.PointEvent) error {
	if event.ID == "" {
		event.ID = "evt-1"
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeLedger) TotalPoints(ctx context.Context, userID string) (int, error) {
	return f.total, nil
}

func (f *fakeLedger) TotalPointsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return 0, nil
}

func (f *fakeLedger) History(ctx context.Context, userID string, limit, offset int) ([]models.PointEvent, int, error) {
	return nil, 0, nil
}

func (f *fakeLedger) BreakdownByActivityType(ctx context.Context, userID string) ([]models.ActivityBreakdown, error) {
	return nil, nil
}

func (f *fakeLedger) FindReasonByKey(ctx context.Context, key string) (*models.PointReason, error) {
	reason, ok := f.reasons[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return reason, nil
}

type fakeUserReader struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func (f *fakeUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserReader) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

type fakeEvaluator struct {
	badges []string
	err    error
	calls  int
}

func (f *fakeEvaluator) EvaluateEligibility(ctx context.Context, userID string) ([]string, error) {
	f.calls++
	return f.badges, f.err
}

func newAwardServiceForTest(ledger *fakeLedger, users *fakeUserReader, evaluator *fakeEvaluator) *AwardService {
	return NewAwardService(ledger, users, evaluator, NewMetricsService(), validator.New(), zap.NewNop())
}

func student(id string) *models.User {
	return &models.User{ID: id, Role: models.RoleStudent, Active: true}
}

func TestAwardServiceAwardPoints(t *testing.T) {
	ledger := &fakeLedger{reasons: map[string]*models.PointReason{"cleanup": {ID: "r1", Key: "cleanup"}}}
	users := &fakeUserReader{users: map[string]*models.User{"u1": student("u1")}}
	evaluator := &fakeEvaluator{badges: []string{"Eco Starter"}}
	svc := newAwardServiceForTest(ledger, users, evaluator)

	result, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "u1",
		Points:       25,
		ActivityType: models.ActivityManual,
		ReasonKey:    "cleanup",
		Note:         "beach cleanup",
	})
	require.NoError(t, err)
	require.Len(t, ledger.events, 1)
	assert.Equal(t, 25, ledger.events[0].Points)
	require.NotNil(t, ledger.events[0].ReasonID)
	assert.Equal(t, "r1", *ledger.events[0].ReasonID)
	assert.Equal(t, []string{"Eco Starter"}, result.NewBadges)
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionManualAward, users.auditLogs[0].Action)
}

func TestAwardServiceAwardPointsZeroRejected(t *testing.T) {
	svc := newAwardServiceForTest(&fakeLedger{}, &fakeUserReader{}, &fakeEvaluator{})

	_, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "u1",
		Points:       0,
		ActivityType: models.ActivityManual,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAwardServiceAwardPointsNonStudent(t *testing.T) {
	users := &fakeUserReader{users: map[string]*models.User{"t1": {ID: "t1", Role: models.RoleTeacher, Active: true}}}
	svc := newAwardServiceForTest(&fakeLedger{}, users, &fakeEvaluator{})

	_, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "t1",
		Points:       10,
		ActivityType: models.ActivityManual,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAwardServiceAwardPointsUnknownUser(t *testing.T) {
	svc := newAwardServiceForTest(&fakeLedger{}, &fakeUserReader{users: map[string]*models.User{}}, &fakeEvaluator{})

	_, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "ghost",
		Points:       10,
		ActivityType: models.ActivityManual,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAwardServiceAwardPointsNegativeCorrection(t *testing.T) {
	ledger := &fakeLedger{}
	users := &fakeUserReader{users: map[string]*models.User{"u1": student("u1")}}
	svc := newAwardServiceForTest(ledger, users, &fakeEvaluator{})

	_, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "u1",
		Points:       -15,
		ActivityType: models.ActivityManual,
		Note:         "duplicate entry correction",
	})
	require.NoError(t, err)
	require.Len(t, ledger.events, 1)
	assert.Equal(t, -15, ledger.events[0].Points)
}

func TestAwardServiceBadgeFailureDoesNotUndoAward(t *testing.T) {
	ledger := &fakeLedger{}
	users := &fakeUserReader{users: map[string]*models.User{"u1": student("u1")}}
	evaluator := &fakeEvaluator{err: errors.New("badge engine down")}
	svc := newAwardServiceForTest(ledger, users, evaluator)

	result, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "u1",
		Points:       10,
		ActivityType: models.ActivityManual,
	})
	require.NoError(t, err)
	assert.Len(t, ledger.events, 1)
	assert.Empty(t, result.NewBadges)
	assert.Equal(t, 1, evaluator.calls)
}

func TestAwardServiceUnknownReasonKeyIsNull(t *testing.T) {
	ledger := &fakeLedger{reasons: map[string]*models.PointReason{}}
	users := &fakeUserReader{users: map[string]*models.User{"u1": student("u1")}}
	svc := newAwardServiceForTest(ledger, users, &fakeEvaluator{})

	_, err := svc.AwardPoints(context.Background(), "admin-1", models.AwardPointsRequest{
		UserID:       "u1",
		Points:       5,
		ActivityType: models.ActivityManual,
		ReasonKey:    "no-such-key",
	})
	require.NoError(t, err)
	require.Len(t, ledger.events, 1)
	assert.Nil(t, ledger.events[0].ReasonID)
}

func TestAwardServiceGetHistoryPagination(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newAwardServiceForTest(ledger, &fakeUserReader{}, &fakeEvaluator{})

	_, pagination, err := svc.GetHistory(context.Background(), "u1", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}
