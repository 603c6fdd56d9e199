package db

import "time"

// Bookmark is the core record. RaindropID is the natural key that correlates
// every derived artifact (content cache entry, podcast episode, vector ids).
type Bookmark struct {
	RaindropID  int64     `json:"raindropId"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Byline      string    `json:"byline,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	TextContent string    `json:"textContent,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ContentCache is one-to-one with Bookmark. It doubles as a pointer into the
// HTML blob store and as an error ledger: a row with a non-empty Error marks a
// failed enrichment attempt without deleting the placeholder bookmark.
type ContentCache struct {
	RaindropID  int64     `json:"raindropId"`
	HTMLKey     string    `json:"htmlKvKey"`
	ExtractedAt time.Time `json:"extractedAt"`
	Error       string    `json:"error,omitempty"`
}

// PodcastEpisode is created only after successful audio synthesis.
type PodcastEpisode struct {
	RaindropID int64     `json:"raindropId"`
	AudioKey   string    `json:"audioKey"`
	Script     string    `json:"script"`
	CreatedAt  time.Time `json:"created_at"`
}

// SyncCheckpoint rows form an append-only log; reads take the most recent row.
type SyncCheckpoint struct {
	LastSyncedAt time.Time `json:"lastSyncedAt"`
	CreatedAt    time.Time `json:"created_at"`
}
