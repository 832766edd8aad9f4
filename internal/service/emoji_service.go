package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftedbits/emojigen/internal/models"
	"github.com/craftedbits/emojigen/internal/repository"
)

type EmojiService struct {
	emojis *repository.EmojiRepository
}

func NewEmojiService(emojis *repository.EmojiRepository) *EmojiService {
	return &EmojiService{emojis: emojis}
}

// Save persists a freshly generated image as a new emoji owned by the user.
func (s *EmojiService) Save(ctx context.Context, userID, prompt, imageURL string) (*models.Emoji, error) {
	emoji := &models.Emoji{
		ID:         uuid.NewString(),
		UserID:     userID,
		Prompt:     prompt,
		ImageURL:   imageURL,
		LikesCount: 0,
	}
	if err := s.emojis.Insert(ctx, emoji); err != nil {
		return nil, fmt.Errorf("save emoji: %w", err)
	}
	return emoji, nil
}

func (s *EmojiService) Get(ctx context.Context, id string) (*models.Emoji, error) {
	return s.emojis.GetByID(ctx, id)
}

func (s *EmojiService) List(ctx context.Context, viewerID string, filter models.Filter) ([]models.Emoji, error) {
	if filter != models.FilterTrending {
		filter = models.FilterLatest
	}
	emojis, err := s.emojis.List(ctx, viewerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list emojis: %w", err)
	}
	return emojis, nil
}

func (s *EmojiService) ListMine(ctx context.Context, userID string) ([]models.Emoji, error) {
	emojis, err := s.emojis.ListByOwner(ctx, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list own emojis: %w", err)
	}
	return emojis, nil
}
