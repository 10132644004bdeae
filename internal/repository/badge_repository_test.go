package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenquest/greenquest-api/internal/models"
)

func newBadgeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBadgeRepositoryEligiblePointBadges(t *testing.T) {
	db, mock, cleanup := newBadgeRepoMock(t)
	defer cleanup()
	repo := NewBadgeRepository(db)

	bronze, silver := 100, 250
	rows := sqlmock.NewRows([]string{"id", "name", "description", "points_required", "icon", "created_at"}).
		AddRow("b1", "Eco Starter", "First 100 points", bronze, nil, time.Now()).
		AddRow("b2", "Eco Hero", "250 points strong", silver, nil, time.Now())
	mock.ExpectQuery("SELECT b.id, b.name, b.description, b.points_required, b.icon, b.created_at").
		WithArgs("u1", 300).
		WillReturnRows(rows)

	badges, err := repo.EligiblePointBadges(context.Background(), "u1", 300)
	require.NoError(t, err)
	require.Len(t, badges, 2)
	assert.Equal(t, "Eco Starter", badges[0].Name)
	assert.Equal(t, "Eco Hero", badges[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBadgeRepositoryInsertUserBadge(t *testing.T) {
	db, mock, cleanup := newBadgeRepoMock(t)
	defer cleanup()
	repo := NewBadgeRepository(db)

	mock.ExpectExec("INSERT INTO user_badges").
		WithArgs(sqlmock.AnyArg(), "u1", "b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	isNew, err := repo.InsertUserBadge(context.Background(), &models.UserBadge{UserID: "u1", BadgeID: "b1"})
	require.NoError(t, err)
	assert.True(t, isNew)

	mock.ExpectExec("INSERT INTO user_badges").
		WithArgs(sqlmock.AnyArg(), "u1", "b1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	isNew, err = repo.InsertUserBadge(context.Background(), &models.UserBadge{UserID: "u1", BadgeID: "b1"})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBadgeRepositoryHasBadge(t *testing.T) {
	db, mock, cleanup := newBadgeRepoMock(t)
	defer cleanup()
	repo := NewBadgeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM user_badges ub JOIN badges b ON b.id = ub.badge_id WHERE ub.user_id = $1 AND b.name = $2)")).
		WithArgs("u1", models.BadgeQuizMaster).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	held, err := repo.HasBadge(context.Background(), "u1", models.BadgeQuizMaster)
	require.NoError(t, err)
	assert.True(t, held)
	assert.NoError(t, mock.ExpectationsWereMet())
}
