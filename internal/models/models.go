package models

import "time"

// Filter selects the ordering of the public emoji feed.
type Filter string

const (
	FilterLatest   Filter = "latest"
	FilterTrending Filter = "trending"
)

// Emoji is a stored generated image. Only LikesCount mutates after creation.
// Liked is computed per viewer at query time and never stored.
type Emoji struct {
	ID         string
	UserID     string
	Prompt     string
	ImageURL   string
	LikesCount int
	Liked      bool
	CreatedAt  time.Time
}

// LikeRecord is a per-user per-emoji endorsement. The (EmojiID, UserID) pair
// is unique.
type LikeRecord struct {
	EmojiID   string
	UserID    string
	CreatedAt time.Time
}

// CreditBalance is the remaining generation allowance for one user.
type CreditBalance struct {
	UserID    string
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
