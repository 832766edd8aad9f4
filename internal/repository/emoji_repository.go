package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/craftedbits/emojigen/internal/models"
)

type EmojiRepository struct {
	db *sql.DB
}

func NewEmojiRepository(db *sql.DB) *EmojiRepository {
	return &EmojiRepository{db: db}
}

func (r *EmojiRepository) Insert(ctx context.Context, emoji *models.Emoji) error {
	const query = `
INSERT INTO emoji (id, user_id, prompt, image_url, likes_count)
VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, emoji.ID, emoji.UserID, emoji.Prompt, emoji.ImageURL, emoji.LikesCount); err != nil {
		return fmt.Errorf("insert emoji: %w", err)
	}
	return nil
}

func (r *EmojiRepository) GetByID(ctx context.Context, id string) (*models.Emoji, error) {
	const query = `
SELECT id, user_id, prompt, image_url, likes_count, created_at
FROM emoji WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var e models.Emoji
	if err := row.Scan(&e.ID, &e.UserID, &e.Prompt, &e.ImageURL, &e.LikesCount, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan emoji: %w", err)
	}
	return &e, nil
}

// List returns the public feed. The viewer's like relation is folded in with a
// LEFT JOIN so Liked is confirmed server state, not client arithmetic. An empty
// viewerID matches no likes and yields Liked=false everywhere.
func (r *EmojiRepository) List(ctx context.Context, viewerID string, filter models.Filter) ([]models.Emoji, error) {
	order := "e.created_at DESC"
	if filter == models.FilterTrending {
		order = "e.likes_count DESC"
	}
	query := `
SELECT e.id, e.user_id, e.prompt, e.image_url, e.likes_count, e.created_at,
       l.user_id IS NOT NULL AS liked
FROM emoji e
LEFT JOIN emoji_likes l ON l.emoji_id = e.id AND l.user_id = ?
ORDER BY ` + order
	rows, err := r.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list emojis: %w", err)
	}
	defer rows.Close()

	return scanEmojis(rows)
}

// ListByOwner returns one user's emojis, newest first, with the viewer's like
// relation folded in the same way as List.
func (r *EmojiRepository) ListByOwner(ctx context.Context, ownerID, viewerID string) ([]models.Emoji, error) {
	const query = `
SELECT e.id, e.user_id, e.prompt, e.image_url, e.likes_count, e.created_at,
       l.user_id IS NOT NULL AS liked
FROM emoji e
LEFT JOIN emoji_likes l ON l.emoji_id = e.id AND l.user_id = ?
WHERE e.user_id = ?
ORDER BY e.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, viewerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list emojis by owner: %w", err)
	}
	defer rows.Close()

	return scanEmojis(rows)
}

func scanEmojis(rows *sql.Rows) ([]models.Emoji, error) {
	var emojis []models.Emoji
	for rows.Next() {
		var e models.Emoji
		if err := rows.Scan(&e.ID, &e.UserID, &e.Prompt, &e.ImageURL, &e.LikesCount, &e.CreatedAt, &e.Liked); err != nil {
			return nil, fmt.Errorf("scan emoji row: %w", err)
		}
		emojis = append(emojis, e)
	}
	return emojis, rows.Err()
}
