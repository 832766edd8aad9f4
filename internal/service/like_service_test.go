package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/craftedbits/emojigen/internal/repository"
)

func newLikeService(t *testing.T) (*LikeService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	svc := NewLikeService(repository.NewEmojiRepository(db), repository.NewLikeRepository(db))
	return svc, mock, func() { db.Close() }
}

func expectEmojiLookup(mock sqlmock.Sqlmock, emojiID string, likesCount int) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(`SELECT id, user_id, prompt, image_url, likes_count, created_at FROM emoji WHERE id = \?`).
		WithArgs(emojiID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "prompt", "image_url", "likes_count", "created_at"}).
			AddRow(emojiID, "owner-1", "happy cat", "https://cdn.example.com/cat.png", likesCount, time.Now()))
}

func expectLikeAdded(mock sqlmock.Sqlmock, emojiID string, newCount int) {
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO emoji_likes`).
		WithArgs(emojiID, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE emoji SET likes_count = likes_count \+ 1`).
		WithArgs(emojiID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT likes_count FROM emoji`).
		WithArgs(emojiID).
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(newCount))
	mock.ExpectCommit()
}

func TestToggle_Like(t *testing.T) {
	svc, mock, cleanup := newLikeService(t)
	defer cleanup()

	expectEmojiLookup(mock, "emoji-1", 5)
	expectLikeAdded(mock, "emoji-1", 6)

	result, err := svc.Toggle(context.Background(), "user-1", "emoji-1", false)

	assert.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 6, result.LikesCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggle_Unlike(t *testing.T) {
	svc, mock, cleanup := newLikeService(t)
	defer cleanup()

	expectEmojiLookup(mock, "emoji-1", 6)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emoji_likes`).
		WithArgs("emoji-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE emoji SET likes_count = GREATEST\(likes_count - 1, 0\)`).
		WithArgs("emoji-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT likes_count FROM emoji`).
		WithArgs("emoji-1").
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(5))
	mock.ExpectCommit()

	result, err := svc.Toggle(context.Background(), "user-1", "emoji-1", true)

	assert.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 5, result.LikesCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggle_UnknownEmoji(t *testing.T) {
	svc, mock, cleanup := newLikeService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, user_id, prompt, image_url, likes_count, created_at FROM emoji WHERE id = \?`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "prompt", "image_url", "likes_count", "created_at"}))

	_, err := svc.Toggle(context.Background(), "user-1", "ghost", false)

	assert.ErrorIs(t, err, ErrEmojiNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A second toggle for the same pair must be rejected while the first is still
// settling, so a double-click can never insert two like records.
func TestToggle_SecondCallWhileInFlightIsRejected(t *testing.T) {
	svc, mock, cleanup := newLikeService(t)
	defer cleanup()

	expectEmojiLookup(mock, "emoji-1", 0).WillDelayFor(100 * time.Millisecond)
	expectLikeAdded(mock, "emoji-1", 1)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = svc.Toggle(context.Background(), "user-1", "emoji-1", false)
	}()

	// Let the first toggle grab the guard and block on the lookup.
	time.Sleep(20 * time.Millisecond)
	_, secondErr := svc.Toggle(context.Background(), "user-1", "emoji-1", false)
	wg.Wait()

	assert.NoError(t, firstErr)
	assert.ErrorIs(t, secondErr, ErrToggleInFlight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The guard is scoped per (emoji, user) pair: other pairs proceed normally.
func TestToggle_GuardReleasedAfterSettle(t *testing.T) {
	svc, mock, cleanup := newLikeService(t)
	defer cleanup()

	expectEmojiLookup(mock, "emoji-1", 0)
	expectLikeAdded(mock, "emoji-1", 1)
	expectEmojiLookup(mock, "emoji-1", 1)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emoji_likes`).
		WithArgs("emoji-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE emoji SET likes_count = GREATEST\(likes_count - 1, 0\)`).
		WithArgs("emoji-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT likes_count FROM emoji`).
		WithArgs("emoji-1").
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(0))
	mock.ExpectCommit()

	first, err := svc.Toggle(context.Background(), "user-1", "emoji-1", false)
	assert.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.LikesCount)

	second, err := svc.Toggle(context.Background(), "user-1", "emoji-1", true)
	assert.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.LikesCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The guard is released on the failure path too.
func TestToggle_GuardReleasedAfterFailure(t *testing.T) {
	svc, mock, cleanup := newLikeService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, user_id, prompt, image_url, likes_count, created_at FROM emoji WHERE id = \?`).
		WithArgs("emoji-1").
		WillReturnError(assert.AnError)
	expectEmojiLookup(mock, "emoji-1", 0)
	expectLikeAdded(mock, "emoji-1", 1)

	_, err := svc.Toggle(context.Background(), "user-1", "emoji-1", false)
	assert.Error(t, err)

	result, err := svc.Toggle(context.Background(), "user-1", "emoji-1", false)
	assert.NoError(t, err)
	assert.True(t, result.Liked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
