package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/craftedbits/emojigen/internal/models"
	"github.com/craftedbits/emojigen/internal/replicate"
)

// ErrPromptRequired is the validation failure for a missing prompt. It is
// reported before any credit debit or vendor call.
var ErrPromptRequired = errors.New("prompt is required")

// ImageMirror copies a vendor-hosted image into durable storage and returns
// the durable URL. Vendor URLs expire, so the copy happens before persisting.
type ImageMirror interface {
	Mirror(ctx context.Context, srcURL string) (string, error)
}

type GenerationService struct {
	log     *slog.Logger
	credits *CreditService
	emojis  *EmojiService
	client  *replicate.Client
	mirror  ImageMirror
}

func NewGenerationService(log *slog.Logger, credits *CreditService, emojis *EmojiService, client *replicate.Client, mirror ImageMirror) *GenerationService {
	return &GenerationService{
		log:     log,
		credits: credits,
		emojis:  emojis,
		client:  client,
		mirror:  mirror,
	}
}

// Generate debits one credit, runs the prompt through the vendor, and persists
// the result. No emoji row is written on any failure; the debit is not rolled
// back on vendor failure, matching the one-way credit flow.
func (s *GenerationService) Generate(ctx context.Context, userID, prompt string) (*models.Emoji, int, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, 0, ErrPromptRequired
	}

	remaining, err := s.credits.Debit(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	imageURL, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return nil, remaining, err
	}

	if s.mirror != nil {
		mirrored, err := s.mirror.Mirror(ctx, imageURL)
		if err != nil {
			// The vendor URL still works short-term; keep it rather than
			// failing the whole generation.
			s.log.Error("mirror image", "err", err)
		} else {
			imageURL = mirrored
		}
	}

	emoji, err := s.emojis.Save(ctx, userID, prompt, imageURL)
	if err != nil {
		return nil, remaining, err
	}

	s.log.Info("emoji generated", "user_id", userID, "emoji_id", emoji.ID, "credits_remaining", remaining)
	return emoji, remaining, nil
}
