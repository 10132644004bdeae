package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenquest/greenquest-api/internal/models"
)

func newLeaderboardRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLeaderboardRepositoryTopStudents(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	school := "Green Valley"
	rows := sqlmock.NewRows([]string{"user_id", "full_name", "school_name", "total_points", "badge_count"}).
		AddRow("u1", "Alice", school, 320, 4).
		AddRow("u2", "Bob", school, 320, 2).
		AddRow("u3", "Cara", nil, 150, 5)
	mock.ExpectQuery("SELECT u.id AS user_id, u.full_name, s.name AS school_name").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := repo.TopStudents(context.Background(), models.LeaderboardQuery{
		Scope:  models.ScopeGlobal,
		Period: models.PeriodAll,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)
	assert.Equal(t, "u1", entries[0].UserID)
	assert.Nil(t, entries[2].SchoolName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryTopStudentsScoped(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	anchor := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("u.school_id = ").
		WithArgs("school-1", sqlmock.AnyArg(), 5).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "full_name", "school_name", "total_points", "badge_count"}))

	entries, err := repo.TopStudents(context.Background(), models.LeaderboardQuery{
		Scope:    models.ScopeSchool,
		ScopeID:  "school-1",
		Period:   models.PeriodWeek,
		Limit:    5,
		Anchored: anchor,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryUserRank(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "rank", "total_points", "badge_count"}).
		AddRow("u2", 7, 95, 1)
	mock.ExpectQuery("ROW_NUMBER").
		WithArgs("u2").
		WillReturnRows(rows)

	rank, err := repo.UserRank(context.Background(), models.LeaderboardQuery{Scope: models.ScopeGlobal, Period: models.PeriodAll}, "u2")
	require.NoError(t, err)
	assert.Equal(t, 7, rank.Rank)
	assert.Equal(t, 95, rank.TotalPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryUserRankNoPoints(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	mock.ExpectQuery("ROW_NUMBER").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	rank, err := repo.UserRank(context.Background(), models.LeaderboardQuery{Scope: models.ScopeGlobal, Period: models.PeriodAll}, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, rank.Rank)
	assert.Equal(t, "ghost", rank.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
