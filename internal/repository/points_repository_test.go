package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenquest/greenquest-api/internal/models"
)

func newPointsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPointsRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectExec("INSERT INTO point_events").
		WithArgs(sqlmock.AnyArg(), "u1", 25, "manual", nil, nil, "tree planting day", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	awardedBy := "admin-1"
	event := &models.PointEvent{
		UserID:       "u1",
		Points:       25,
		ActivityType: models.ActivityManual,
		Note:         "tree planting day",
		AwardedBy:    &awardedBy,
	}
	require.NoError(t, repo.Insert(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.AwardedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryTotalPoints(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(points), 0) FROM point_events WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(140))

	total, err := repo.TotalPoints(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 140, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryHistory(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "points", "activity_type", "activity_id", "reason_id", "note", "awarded_by", "awarded_at"}).
		AddRow("e2", "u1", 50, "quiz", nil, nil, "", nil, time.Now()).
		AddRow("e1", "u1", 10, "lesson", nil, nil, "", nil, time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT id, user_id, points, activity_type, activity_id, reason_id, note, awarded_by, awarded_at FROM point_events").
		WithArgs("u1", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM point_events WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	events, total, err := repo.History(context.Background(), "u1", 0, -5)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "e2", events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsRepositoryFindReasonByKeyNotFound(t *testing.T) {
	db, mock, cleanup := newPointsRepoMock(t)
	defer cleanup()
	repo := NewPointsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, key, label FROM point_reasons WHERE key = $1 LIMIT 1")).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindReasonByKey(context.Background(), "unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
