package service

import (
	"context"
	"errors"
	"sync"

	"github.com/craftedbits/emojigen/internal/repository"
)

// ErrEmojiNotFound signals a toggle against an emoji that does not exist.
var ErrEmojiNotFound = errors.New("emoji not found")

// ErrToggleInFlight signals a second toggle for a pair whose first toggle has
// not settled yet.
var ErrToggleInFlight = errors.New("like toggle already in flight")

type ToggleResult struct {
	Liked      bool
	LikesCount int
}

type LikeService struct {
	emojis *repository.EmojiRepository
	likes  *repository.LikeRepository

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLikeService(emojis *repository.EmojiRepository, likes *repository.LikeRepository) *LikeService {
	return &LikeService{
		emojis:   emojis,
		likes:    likes,
		inFlight: make(map[string]struct{}),
	}
}

// Toggle flips the like relation for one (emoji, user) pair. The caller passes
// its last confirmed liked state: liked means the record is removed, unliked
// means it is created. The in-flight guard rejects a second toggle for the
// same pair before the first settles and is released on every exit path.
func (s *LikeService) Toggle(ctx context.Context, userID, emojiID string, currentlyLiked bool) (*ToggleResult, error) {
	key := emojiID + "/" + userID
	if !s.acquire(key) {
		return nil, ErrToggleInFlight
	}
	defer s.release(key)

	emoji, err := s.emojis.GetByID(ctx, emojiID)
	if err != nil {
		return nil, err
	}
	if emoji == nil {
		return nil, ErrEmojiNotFound
	}

	if currentlyLiked {
		count, err := s.likes.Remove(ctx, emojiID, userID)
		if err != nil {
			return nil, err
		}
		return &ToggleResult{Liked: false, LikesCount: count}, nil
	}

	count, err := s.likes.Add(ctx, emojiID, userID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Liked: true, LikesCount: count}, nil
}

func (s *LikeService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *LikeService) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}
