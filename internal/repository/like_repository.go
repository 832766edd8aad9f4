package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type LikeRepository struct {
	db *sql.DB
}

func NewLikeRepository(db *sql.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Add inserts the like record and bumps the denormalized counter in one
// transaction, so the stored aggregate cannot drift from the relation.
// Returns the settled likes_count.
func (r *LikeRepository) Add(ctx context.Context, emojiID, userID string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin like tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO emoji_likes (emoji_id, user_id) VALUES (?, ?)`
	if _, err := tx.ExecContext(ctx, insert, emojiID, userID); err != nil {
		return 0, fmt.Errorf("insert like: %w", err)
	}

	const bump = `UPDATE emoji SET likes_count = likes_count + 1 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, bump, emojiID); err != nil {
		return 0, fmt.Errorf("increment likes count: %w", err)
	}

	count, err := selectLikesCount(ctx, tx, emojiID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit like tx: %w", err)
	}
	return count, nil
}

// Remove deletes the like record and lowers the counter in one transaction.
// Deleting a record that is already gone leaves the counter untouched.
func (r *LikeRepository) Remove(ctx context.Context, emojiID, userID string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin unlike tx: %w", err)
	}
	defer tx.Rollback()

	const del = `DELETE FROM emoji_likes WHERE emoji_id = ? AND user_id = ?`
	res, err := tx.ExecContext(ctx, del, emojiID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete like: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unlike rows affected: %w", err)
	}

	if affected > 0 {
		const drop = `UPDATE emoji SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = ?`
		if _, err := tx.ExecContext(ctx, drop, emojiID); err != nil {
			return 0, fmt.Errorf("decrement likes count: %w", err)
		}
	}

	count, err := selectLikesCount(ctx, tx, emojiID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit unlike tx: %w", err)
	}
	return count, nil
}

func (r *LikeRepository) Exists(ctx context.Context, emojiID, userID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM emoji_likes WHERE emoji_id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, emojiID, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("scan like exists: %w", err)
	}
	return count > 0, nil
}

func selectLikesCount(ctx context.Context, tx *sql.Tx, emojiID string) (int, error) {
	const query = `SELECT likes_count FROM emoji WHERE id = ?`
	row := tx.QueryRowContext(ctx, query, emojiID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan likes count: %w", err)
	}
	return count, nil
}
