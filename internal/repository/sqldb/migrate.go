package sqldb

import (
	"context"
	"fmt"
)

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
//
// MIGRATIONS IN PRODUCTION:
// Embedding SQL as string constants is fine at this size. A larger schema
// would move to golang-migrate, which tracks which migrations have run.
//
// CONSTRAINTS CARRY THE RULES:
//   - UNIQUE pairs make toggles race-free: two concurrent inserts of the same
//     like or subscription cannot both succeed.
//   - CHECKs pin the tagged unions: exactly one target column is set and it
//     matches target_type.
//   - ON DELETE CASCADE removes likes, comments, playlist memberships and
//     history rows together with the video, tweet or comment they point at.
func (db *DB) migrate(ctx context.Context) error {
	ts := "DATETIME"
	if db.dialect == DriverPostgres {
		ts = "TIMESTAMPTZ"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                    TEXT PRIMARY KEY,
			username              TEXT NOT NULL UNIQUE,
			email                 TEXT NOT NULL UNIQUE,
			full_name             TEXT NOT NULL,
			avatar                TEXT NOT NULL DEFAULT '',
			avatar_public_id      TEXT NOT NULL DEFAULT '',
			cover_image           TEXT NOT NULL DEFAULT '',
			cover_image_public_id TEXT NOT NULL DEFAULT '',
			password_hash         TEXT NOT NULL DEFAULT '',
			refresh_token_id      TEXT NOT NULL DEFAULT '',
			created_at            ` + ts + ` NOT NULL,
			updated_at            ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS videos (
			id                  TEXT PRIMARY KEY,
			owner_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title               TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			video_file          TEXT NOT NULL,
			video_public_id     TEXT NOT NULL DEFAULT '',
			thumbnail           TEXT NOT NULL,
			thumbnail_public_id TEXT NOT NULL DEFAULT '',
			duration            DOUBLE PRECISION NOT NULL DEFAULT 0,
			views               BIGINT NOT NULL DEFAULT 0 CHECK (views >= 0),
			is_published        BOOLEAN NOT NULL DEFAULT TRUE,
			created_at          ` + ts + ` NOT NULL,
			updated_at          ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_owner_id ON videos(owner_id)`,

		`CREATE TABLE IF NOT EXISTS tweets (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tweets_owner_id ON tweets(owner_id)`,

		`CREATE TABLE IF NOT EXISTS comments (
			id          TEXT PRIMARY KEY,
			content     TEXT NOT NULL,
			target_type TEXT NOT NULL,
			video_id    TEXT REFERENCES videos(id) ON DELETE CASCADE,
			tweet_id    TEXT REFERENCES tweets(id) ON DELETE CASCADE,
			parent_id   TEXT REFERENCES comments(id) ON DELETE CASCADE,
			owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  ` + ts + ` NOT NULL,
			updated_at  ` + ts + ` NOT NULL,
			CHECK (
				(target_type = 'video' AND video_id IS NOT NULL AND tweet_id IS NULL) OR
				(target_type = 'tweet' AND tweet_id IS NOT NULL AND video_id IS NULL)
			),
			CHECK (parent_id IS NULL OR parent_id <> id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_video_id ON comments(video_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_tweet_id ON comments(tweet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_parent_id ON comments(parent_id)`,

		`CREATE TABLE IF NOT EXISTS likes (
			id          TEXT PRIMARY KEY,
			target_type TEXT NOT NULL,
			video_id    TEXT REFERENCES videos(id) ON DELETE CASCADE,
			comment_id  TEXT REFERENCES comments(id) ON DELETE CASCADE,
			tweet_id    TEXT REFERENCES tweets(id) ON DELETE CASCADE,
			liked_by    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  ` + ts + ` NOT NULL,
			UNIQUE (liked_by, video_id),
			UNIQUE (liked_by, comment_id),
			UNIQUE (liked_by, tweet_id),
			CHECK (
				(target_type = 'video' AND video_id IS NOT NULL AND comment_id IS NULL AND tweet_id IS NULL) OR
				(target_type = 'comment' AND comment_id IS NOT NULL AND video_id IS NULL AND tweet_id IS NULL) OR
				(target_type = 'tweet' AND tweet_id IS NOT NULL AND video_id IS NULL AND comment_id IS NULL)
			)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_video_id ON likes(video_id)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_comment_id ON likes(comment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_tweet_id ON likes(tweet_id)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id            TEXT PRIMARY KEY,
			subscriber_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			channel_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at    ` + ts + ` NOT NULL,
			UNIQUE (subscriber_id, channel_id),
			CHECK (subscriber_id <> channel_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_channel_id ON subscriptions(channel_id)`,

		`CREATE TABLE IF NOT EXISTS playlists (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  ` + ts + ` NOT NULL,
			updated_at  ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playlists_owner_id ON playlists(owner_id)`,

		`CREATE TABLE IF NOT EXISTS playlist_videos (
			playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			video_id    TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
			position    BIGINT NOT NULL,
			PRIMARY KEY (playlist_id, video_id)
		)`,

		`CREATE TABLE IF NOT EXISTS watch_history (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			video_id   TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
			watched_at ` + ts + ` NOT NULL,
			PRIMARY KEY (user_id, video_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watch_history_user ON watch_history(user_id, watched_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying %q: %w", firstLine(stmt), err)
		}
	}

	// Phase 2: GitHub login. Added as a column migration so databases created
	// before OAuth existed pick it up.
	if err := db.addColumnIfNotExists(ctx, "users", "github_id", "BIGINT"); err != nil {
		return fmt.Errorf("adding github_id to users: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id)`); err != nil {
		return fmt.Errorf("creating users github_id index: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent across both dialects.
func (db *DB) addColumnIfNotExists(ctx context.Context, table, column, definition string) error {
	var (
		count int
		err   error
	)
	if db.dialect == DriverPostgres {
		err = db.queryRow(ctx,
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?`,
			table, column,
		).Scan(&count)
	} else {
		err = db.queryRow(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
			table, column,
		).Scan(&count)
	}
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
