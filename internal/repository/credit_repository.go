package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/craftedbits/emojigen/internal/models"
)

type CreditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) Get(ctx context.Context, userID string) (*models.CreditBalance, error) {
	const query = `
SELECT user_id, credits, created_at, updated_at
FROM user_credits WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var b models.CreditBalance
	if err := row.Scan(&b.UserID, &b.Credits, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan credit balance: %w", err)
	}
	return &b, nil
}

// Create inserts the initial allowance for a user. A concurrent first access
// may have inserted the row already; the duplicate-key no-op keeps the call
// idempotent so the caller can simply re-read.
func (r *CreditRepository) Create(ctx context.Context, userID string, credits int) error {
	const query = `
INSERT INTO user_credits (user_id, credits)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE user_id = user_id`
	if _, err := r.db.ExecContext(ctx, query, userID, credits); err != nil {
		return fmt.Errorf("insert credit balance: %w", err)
	}
	return nil
}

// Debit decrements one credit only while the stored balance is positive.
// Zero rows affected means the balance was already exhausted.
func (r *CreditRepository) Debit(ctx context.Context, userID string) (bool, error) {
	const query = `
UPDATE user_credits SET credits = credits - 1, updated_at = NOW()
WHERE user_id = ? AND credits > 0`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("debit credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit rows affected: %w", err)
	}
	return affected > 0, nil
}
