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

var _ repository.TweetRepository = (*Tweets)(nil)

type Tweets struct {
	db *DB
}

const tweetColumns = `t.id, t.title, t.content, t.owner_id, t.created_at, t.updated_at,
	u.id, u.username, u.full_name, u.avatar,
	(SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id)`

func scanTweet(row interface{ Scan(...any) error }) (*model.Tweet, error) {
	var (
		t     model.Tweet
		owner model.UserSummary
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Content, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar,
		&t.LikesCount,
	)
	if err != nil {
		return nil, err
	}
	t.Owner = &owner
	return &t, nil
}

func (s *Tweets) Create(ctx context.Context, tweet *model.Tweet) error {
	now := time.Now().UTC()
	tweet.ID = xid.New().String()
	tweet.CreatedAt = now
	tweet.UpdatedAt = now

	_, err := s.db.exec(ctx,
		`INSERT INTO tweets (id, title, content, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tweet.ID, tweet.Title, tweet.Content, tweet.OwnerID, tweet.CreatedAt, tweet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqldb: inserting tweet: %w", err)
	}
	return nil
}

func (s *Tweets) GetByID(ctx context.Context, id string) (*model.Tweet, error) {
	t, err := scanTweet(s.db.queryRow(ctx,
		`SELECT `+tweetColumns+`
		 FROM tweets t JOIN users u ON u.id = t.owner_id
		 WHERE t.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tweet", id)
		}
		return nil, fmt.Errorf("sqldb: getting tweet %s: %w", id, err)
	}
	return t, nil
}

// List returns every tweet, newest first.
func (s *Tweets) List(ctx context.Context, opts repository.ListOptions) ([]model.Tweet, error) {
	return s.list(ctx, "", opts)
}

// ListByOwner returns the user's tweets, newest first. A user without tweets
// gets an empty slice, not an error.
func (s *Tweets) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Tweet, error) {
	return s.list(ctx, " WHERE t.owner_id = ?", opts, ownerID)
}

func (s *Tweets) list(ctx context.Context, where string, opts repository.ListOptions, args ...any) ([]model.Tweet, error) {
	page, args := pageClause(opts, args)
	rows, err := s.db.query(ctx,
		`SELECT `+tweetColumns+`
		 FROM tweets t JOIN users u ON u.id = t.owner_id`+where+`
		 ORDER BY t.id DESC`+page, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing tweets: %w", err)
	}
	defer rows.Close()

	tweets := []model.Tweet{}
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqldb: scanning tweet row: %w", err)
		}
		tweets = append(tweets, *t)
	}
	return tweets, rows.Err()
}

func (s *Tweets) Update(ctx context.Context, tweet *model.Tweet) error {
	tweet.UpdatedAt = time.Now().UTC()
	err := s.db.execAffected(ctx, "tweet", tweet.ID,
		`UPDATE tweets SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		tweet.Title, tweet.Content, tweet.UpdatedAt, tweet.ID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: updating tweet %s: %w", tweet.ID, err)
	}
	return err
}

func (s *Tweets) Delete(ctx context.Context, id string) error {
	err := s.db.execAffected(ctx, "tweet", id, `DELETE FROM tweets WHERE id = ?`, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: deleting tweet %s: %w", id, err)
	}
	return err
}
