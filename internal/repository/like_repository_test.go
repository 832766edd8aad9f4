package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestLikeRepositoryAdd(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO emoji_likes \(emoji_id, user_id\) VALUES \(\?, \?\)`).
		WithArgs("emoji-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE emoji SET likes_count = likes_count \+ 1 WHERE id = \?`).
		WithArgs("emoji-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT likes_count FROM emoji WHERE id = \?`).
		WithArgs("emoji-1").
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(6))
	mock.ExpectCommit()

	repo := NewLikeRepository(db)
	count, err := repo.Add(context.Background(), "emoji-1", "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryAdd_InsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO emoji_likes`).
		WithArgs("emoji-1", "user-1").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	repo := NewLikeRepository(db)
	_, err = repo.Add(context.Background(), "emoji-1", "user-1")

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryRemove(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emoji_likes WHERE emoji_id = \? AND user_id = \?`).
		WithArgs("emoji-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE emoji SET likes_count = GREATEST\(likes_count - 1, 0\) WHERE id = \?`).
		WithArgs("emoji-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT likes_count FROM emoji WHERE id = \?`).
		WithArgs("emoji-1").
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(5))
	mock.ExpectCommit()

	repo := NewLikeRepository(db)
	count, err := repo.Remove(context.Background(), "emoji-1", "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryRemove_AlreadyGone(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	// The record was already deleted: the counter must not be decremented.
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emoji_likes`).
		WithArgs("emoji-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT likes_count FROM emoji WHERE id = \?`).
		WithArgs("emoji-1").
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(5))
	mock.ExpectCommit()

	repo := NewLikeRepository(db)
	count, err := repo.Remove(context.Background(), "emoji-1", "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM emoji_likes WHERE emoji_id = \? AND user_id = \?`).
		WithArgs("emoji-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := NewLikeRepository(db)
	exists, err := repo.Exists(context.Background(), "emoji-1", "user-1")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
