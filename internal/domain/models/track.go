package models

import (
	"time"

	"github.com/google/uuid"
)

// Track is one entry of the externally managed song catalog. Position is the
// 0-based index playback state refers to.
type Track struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Position   int       `json:"index" db:"position"`
	Title      string    `json:"title" db:"title"`
	Artist     string    `json:"artist" db:"artist"`
	AudioURL   string    `json:"audio_url" db:"audio_url"`
	CoverImage string    `json:"cover_image" db:"cover_image"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func NewTrack(position int, title, artist, audioURL, coverImage string) *Track {
	if coverImage == "" {
		coverImage = "/covers/default.png"
	}

	return &Track{
		ID:         uuid.New(),
		Position:   position,
		Title:      title,
		Artist:     artist,
		AudioURL:   audioURL,
		CoverImage: coverImage,
		CreatedAt:  time.Now(),
	}
}
