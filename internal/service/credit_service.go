package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftedbits/emojigen/internal/models"
	"github.com/craftedbits/emojigen/internal/repository"
)

// ErrCreditsExhausted signals that the user has no generation allowance left.
var ErrCreditsExhausted = errors.New("no credits remaining")

type CreditService struct {
	initialCredits int
	credits        *repository.CreditRepository
}

func NewCreditService(initialCredits int, credits *repository.CreditRepository) *CreditService {
	return &CreditService{
		initialCredits: initialCredits,
		credits:        credits,
	}
}

// FetchBalance returns the user's balance, creating the row with the initial
// allowance on first access. The create is idempotent, so two first accesses
// racing each other both end up reading the same row.
func (s *CreditService) FetchBalance(ctx context.Context, userID string) (*models.CreditBalance, error) {
	balance, err := s.credits.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	if balance != nil {
		return balance, nil
	}

	if err := s.credits.Create(ctx, userID, s.initialCredits); err != nil {
		return nil, fmt.Errorf("create balance: %w", err)
	}
	balance, err = s.credits.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reread balance: %w", err)
	}
	if balance == nil {
		return nil, fmt.Errorf("balance missing after create for user %s", userID)
	}
	return balance, nil
}

// Debit consumes one credit and returns the remaining balance. A balance that
// is already at zero fails fast without touching the store; the conditional
// decrement closes the window where two debits race past that check.
func (s *CreditService) Debit(ctx context.Context, userID string) (int, error) {
	balance, err := s.FetchBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if balance.Credits <= 0 {
		return 0, ErrCreditsExhausted
	}

	ok, err := s.credits.Debit(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrCreditsExhausted
	}
	return balance.Credits - 1, nil
}
