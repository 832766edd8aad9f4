package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestCreditRepositoryGet_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT user_id, credits, created_at, updated_at FROM user_credits WHERE user_id = \?`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "credits", "created_at", "updated_at"}).
			AddRow("user-1", 3, now, now))

	repo := NewCreditRepository(db)
	balance, err := repo.Get(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.NotNil(t, balance)
	assert.Equal(t, 3, balance.Credits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRepositoryGet_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id, credits, created_at, updated_at FROM user_credits`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "credits", "created_at", "updated_at"}))

	repo := NewCreditRepository(db)
	balance, err := repo.Get(context.Background(), "ghost")

	assert.NoError(t, err)
	assert.Nil(t, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO user_credits \(user_id, credits\) VALUES \(\?, \?\) ON DUPLICATE KEY UPDATE user_id = user_id`).
		WithArgs("user-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCreditRepository(db)
	err = repo.Create(context.Background(), "user-1", 3)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRepositoryDebit_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE user_credits SET credits = credits - 1, updated_at = NOW\(\) WHERE user_id = \? AND credits > 0`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCreditRepository(db)
	ok, err := repo.Debit(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRepositoryDebit_Exhausted(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	// Balance already at zero: the conditional update touches no rows.
	mock.ExpectExec(`UPDATE user_credits SET credits = credits - 1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCreditRepository(db)
	ok, err := repo.Debit(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
