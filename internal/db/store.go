package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "podmark.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		raindrop_id INTEGER PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		byline TEXT,
		summary TEXT,
		text_content TEXT,
		cover_image TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS content_cache (
		raindrop_id INTEGER PRIMARY KEY,
		html_kv_key TEXT NOT NULL DEFAULT '',
		extracted_at TIMESTAMP,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS podcast_episodes (
		raindrop_id INTEGER PRIMARY KEY,
		audio_key TEXT NOT NULL,
		script TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		last_synced_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		raindrop_id INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vectors_raindrop_id ON vectors(raindrop_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertPlaceholder inserts a bookmark with only its URL and synthetic title.
// The UNIQUE constraint on url is the authoritative dedup boundary: a conflict
// here means the URL truly exists and surfaces as an error for the caller to
// log and skip.
func (s *Store) InsertPlaceholder(ctx context.Context, b *Bookmark) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.Title == "" {
		b.Title = b.URL
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (raindrop_id, url, title, created_at) VALUES (?, ?, ?, ?)`,
		b.RaindropID, b.URL, b.Title, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert placeholder: %w", err)
	}
	return nil
}

// UpsertBookmark inserts or updates a bookmark keyed by raindrop_id. Empty
// incoming fields do not clobber existing values (enrichment stages each write
// only the columns they produced).
func (s *Store) UpsertBookmark(ctx context.Context, b *Bookmark) error {
	now := time.Now()
	b.UpdatedAt = now
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.Title == "" {
		b.Title = b.URL
	}

	query := `
	INSERT INTO bookmarks (raindrop_id, url, title, byline, summary, text_content, cover_image, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(raindrop_id) DO UPDATE SET
		title = excluded.title,
		byline = COALESCE(NULLIF(excluded.byline, ''), bookmarks.byline),
		summary = COALESCE(NULLIF(excluded.summary, ''), bookmarks.summary),
		text_content = COALESCE(NULLIF(excluded.text_content, ''), bookmarks.text_content),
		cover_image = COALESCE(NULLIF(excluded.cover_image, ''), bookmarks.cover_image),
		updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		b.RaindropID, b.URL, b.Title, b.Byline, b.Summary, b.TextContent, b.CoverImage,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bookmark: %w", err)
	}
	return nil
}

func (s *Store) UpdateSummary(ctx context.Context, raindropID int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bookmarks SET summary = ?, updated_at = ? WHERE raindrop_id = ?`,
		summary, time.Now(), raindropID,
	)
	return err
}

func (s *Store) UpdateCoverImage(ctx context.Context, raindropID int64, coverImage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bookmarks SET cover_image = ?, updated_at = ? WHERE raindrop_id = ?`,
		coverImage, time.Now(), raindropID,
	)
	return err
}

func (s *Store) GetBookmark(ctx context.Context, raindropID int64) (*Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT raindrop_id, url, title, byline, summary, text_content, cover_image, created_at, updated_at
		 FROM bookmarks WHERE raindrop_id = ?`, raindropID)
	return scanBookmark(row)
}

func (s *Store) GetBookmarkByURL(ctx context.Context, url string) (*Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT raindrop_id, url, title, byline, summary, text_content, cover_image, created_at, updated_at
		 FROM bookmarks WHERE url = ?`, url)
	return scanBookmark(row)
}

func scanBookmark(row *sql.Row) (*Bookmark, error) {
	var b Bookmark
	var byline, summary, text, cover sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(&b.RaindropID, &b.URL, &b.Title, &byline, &summary, &text, &cover, &b.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.Byline = byline.String
	b.Summary = summary.String
	b.TextContent = text.String
	b.CoverImage = cover.String
	if updatedAt.Valid {
		b.UpdatedAt = updatedAt.Time
	}
	return &b, nil
}

// ExistingURLs runs one batched existence query and reports which of the given
// URLs are already present as bookmarks.
func (s *Store) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(urls) == 0 {
		return existing, nil
	}

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM bookmarks WHERE url IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("existence query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		existing[u] = true
	}
	return existing, rows.Err()
}

// EnrichedURLs reports which of the given URLs belong to bookmarks that have
// already been enriched (extracted text present). Placeholder rows awaiting
// their first pipeline pass do not count.
func (s *Store) EnrichedURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	enriched := make(map[string]bool)
	if len(urls) == 0 {
		return enriched, nil
	}

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM bookmarks WHERE text_content IS NOT NULL AND text_content != '' AND url IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("enriched query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		enriched[u] = true
	}
	return enriched, rows.Err()
}

// ListBookmarks returns one page of bookmarks, newest first, plus the total
// count. Pages are 1-based.
func (s *Store) ListBookmarks(ctx context.Context, page, perPage int) ([]Bookmark, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT raindrop_id, url, title, byline, summary, text_content, cover_image, created_at, updated_at
		 FROM bookmarks ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		var byline, summary, text, cover sql.NullString
		var updatedAt sql.NullTime
		if err := rows.Scan(&b.RaindropID, &b.URL, &b.Title, &byline, &summary, &text, &cover, &b.CreatedAt, &updatedAt); err != nil {
			return nil, 0, err
		}
		b.Byline = byline.String
		b.Summary = summary.String
		b.TextContent = text.String
		b.CoverImage = cover.String
		if updatedAt.Valid {
			b.UpdatedAt = updatedAt.Time
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, count, rows.Err()
}

// UpsertContentCache writes the cache pointer and clears any prior error.
func (s *Store) UpsertContentCache(ctx context.Context, cc *ContentCache) error {
	if cc.ExtractedAt.IsZero() {
		cc.ExtractedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_cache (raindrop_id, html_kv_key, extracted_at, error)
		VALUES (?, ?, ?, NULL)
		ON CONFLICT(raindrop_id) DO UPDATE SET
			html_kv_key = excluded.html_kv_key,
			extracted_at = excluded.extracted_at,
			error = NULL
	`, cc.RaindropID, cc.HTMLKey, cc.ExtractedAt)
	return err
}

// SetCacheError records the last failure message for an item so operators can
// inspect partial state. The row is created if no extraction ever succeeded.
func (s *Store) SetCacheError(ctx context.Context, raindropID int64, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_cache (raindrop_id, error) VALUES (?, ?)
		ON CONFLICT(raindrop_id) DO UPDATE SET error = excluded.error
	`, raindropID, message)
	return err
}

func (s *Store) GetContentCache(ctx context.Context, raindropID int64) (*ContentCache, error) {
	var cc ContentCache
	var extractedAt sql.NullTime
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT raindrop_id, html_kv_key, extracted_at, error FROM content_cache WHERE raindrop_id = ?`,
		raindropID).Scan(&cc.RaindropID, &cc.HTMLKey, &extractedAt, &errMsg)
	if err != nil {
		return nil, err
	}
	if extractedAt.Valid {
		cc.ExtractedAt = extractedAt.Time
	}
	cc.Error = errMsg.String
	return &cc, nil
}

func (s *Store) UpsertPodcastEpisode(ctx context.Context, ep *PodcastEpisode) error {
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO podcast_episodes (raindrop_id, audio_key, script, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(raindrop_id) DO UPDATE SET
			audio_key = excluded.audio_key,
			script = excluded.script
	`, ep.RaindropID, ep.AudioKey, ep.Script, ep.CreatedAt)
	return err
}

func (s *Store) GetPodcastEpisode(ctx context.Context, raindropID int64) (*PodcastEpisode, error) {
	var ep PodcastEpisode
	err := s.db.QueryRowContext(ctx,
		`SELECT raindrop_id, audio_key, script, created_at FROM podcast_episodes WHERE raindrop_id = ?`,
		raindropID).Scan(&ep.RaindropID, &ep.AudioKey, &ep.Script, &ep.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// LatestCheckpoint returns the most recent sync_log row, or nil when no sync
// has ever completed.
func (s *Store) LatestCheckpoint(ctx context.Context) (*SyncCheckpoint, error) {
	var cp SyncCheckpoint
	err := s.db.QueryRowContext(ctx,
		`SELECT last_synced_at, created_at FROM sync_log ORDER BY id DESC LIMIT 1`,
	).Scan(&cp.LastSyncedAt, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// AppendCheckpoint appends a new sync_log row. Rows are never updated in
// place; reads take the most recent one.
func (s *Store) AppendCheckpoint(ctx context.Context, lastSyncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (last_synced_at, created_at) VALUES (?, ?)`,
		lastSyncedAt, time.Now())
	return err
}
