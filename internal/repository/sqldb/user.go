package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// compile-time check that *Users implements repository.UserRepository
var _ repository.UserRepository = (*Users)(nil)

// Users stores accounts, channel projections and watch history.
type Users struct {
	db *DB
}

const userColumns = `id, username, email, full_name, avatar, avatar_public_id,
	cover_image, cover_image_public_id, password_hash, refresh_token_id, github_id,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.AvatarPublicID,
		&u.CoverImage, &u.CoverImagePublicID, &u.PasswordHash, &u.RefreshTokenID, &githubID,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

func githubIDValue(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// Create inserts a new user. A clash on username or email becomes a Conflict.
func (s *Users) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.AvatarPublicID,
		user.CoverImage, user.CoverImagePublicID, user.PasswordHash, user.RefreshTokenID,
		githubIDValue(user.GitHubID), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with email or username already exists")
		}
		return fmt.Errorf("sqldb: inserting user %s: %w", user.Username, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no user exists with that ID.
func (s *Users) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqldb: getting user %s: %w", id, err)
	}
	return u, nil
}

func (s *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(s.db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("channel does not exist")
		}
		return nil, fmt.Errorf("sqldb: getting user by username %s: %w", username, err)
	}
	return u, nil
}

func (s *Users) FindByLogin(ctx context.Context, username, email string) (*model.User, error) {
	var (
		where string
		args  []any
	)
	switch {
	case username != "" && email != "":
		where, args = `username = ? OR email = ?`, []any{username, email}
	case username != "":
		where, args = `username = ?`, []any{username}
	case email != "":
		where, args = `email = ?`, []any{email}
	default:
		return nil, apperror.ValidationFailed("username", "username or email is required")
	}

	u, err := scanUser(s.db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY id LIMIT 1`, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("User does not exist")
		}
		return nil, fmt.Errorf("sqldb: finding user for login: %w", err)
	}
	return u, nil
}

func (s *Users) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	err := s.db.execAffected(ctx, "user", user.ID,
		`UPDATE users SET email = ?, full_name = ?, avatar = ?, avatar_public_id = ?,
		 cover_image = ?, cover_image_public_id = ?, password_hash = ?, refresh_token_id = ?,
		 updated_at = ?
		 WHERE id = ?`,
		user.Email, user.FullName, user.Avatar, user.AvatarPublicID,
		user.CoverImage, user.CoverImagePublicID, user.PasswordHash, user.RefreshTokenID,
		user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email is already in use")
		}
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("sqldb: updating user %s: %w", user.ID, err)
	}
	return nil
}

// SetRefreshTokenID stores the jti of the newest refresh token; "" revokes
// every outstanding refresh token of the user.
func (s *Users) SetRefreshTokenID(ctx context.Context, userID, tokenID string) error {
	err := s.db.execAffected(ctx, "user", userID,
		`UPDATE users SET refresh_token_id = ?, updated_at = ? WHERE id = ?`,
		tokenID, time.Now().UTC(), userID,
	)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: storing refresh token for %s: %w", userID, err)
	}
	return err
}

// UpsertGitHub inserts or refreshes a user keyed by GitHub ID.
//
// An existing account keeps its internal ID, username and email; only the
// avatar is refreshed from GitHub. A new account takes the GitHub login as
// username, falling back to "<login>-gh<id>" when that name is taken.
func (s *Users) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("githubId", "github id is required")
	}

	existing, err := scanUser(s.db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID))
	switch {
	case err == nil:
		existing.Avatar = user.Avatar
		if err := s.Update(ctx, existing); err != nil {
			return err
		}
		*user = *existing
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqldb: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	err = s.Create(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user.Username = fmt.Sprintf("%s-gh%d", user.Username, *user.GitHubID)
		user.Email = fmt.Sprintf("%d+%s", *user.GitHubID, user.Email)
		err = s.Create(ctx, user)
	}
	return err
}

// ChannelProfile joins the user with subscription and video counts as seen
// by viewerID.
func (s *Users) ChannelProfile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	var (
		p            model.ChannelProfile
		isSubscribed int64
	)
	err := s.db.queryRow(ctx,
		`SELECT u.id, u.username, u.email, u.full_name, u.avatar, u.cover_image, u.created_at,
		   (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
		   (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
		   (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?),
		   (SELECT COUNT(*) FROM videos v WHERE v.owner_id = u.id AND v.is_published = ?)
		 FROM users u WHERE u.username = ?`,
		viewerID, true, username,
	).Scan(
		&p.ID, &p.Username, &p.Email, &p.FullName, &p.Avatar, &p.CoverImage, &p.CreatedAt,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &isSubscribed, &p.VideosCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("channel does not exist")
		}
		return nil, fmt.Errorf("sqldb: loading channel %s: %w", username, err)
	}
	p.IsSubscribed = isSubscribed > 0
	return &p, nil
}

// RecordWatch upserts the (user, video) history row with a fresh timestamp,
// then trims the user's history to the newest limit rows.
func (s *Users) RecordWatch(ctx context.Context, userID, videoID string, limit int) error {
	_, err := s.db.exec(ctx,
		`INSERT INTO watch_history (user_id, video_id, watched_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = excluded.watched_at`,
		userID, videoID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqldb: recording watch %s/%s: %w", userID, videoID, err)
	}

	if limit > 0 {
		_, err = s.db.exec(ctx,
			`DELETE FROM watch_history WHERE user_id = ? AND video_id NOT IN (
			   SELECT video_id FROM watch_history WHERE user_id = ?
			   ORDER BY watched_at DESC, video_id DESC LIMIT ?)`,
			userID, userID, limit,
		)
		if err != nil {
			return fmt.Errorf("sqldb: trimming history of %s: %w", userID, err)
		}
	}
	return nil
}

// History returns watched videos, most recent first, with owner summaries.
// Videos unpublished since they were watched drop out until republished,
// unless the user owns them.
func (s *Users) History(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	rows, err := s.db.query(ctx,
		`SELECT `+videoWithOwnerColumns+`, h.watched_at
		 FROM watch_history h
		 JOIN videos v ON v.id = h.video_id
		 JOIN users u ON u.id = v.owner_id
		 WHERE h.user_id = ? AND (v.is_published = ? OR v.owner_id = ?)
		 ORDER BY h.watched_at DESC, h.video_id DESC`,
		userID, true, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing history of %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		if err := scanVideoWithOwner(rows, &e.Video, &e.WatchedAt); err != nil {
			return nil, fmt.Errorf("sqldb: scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
