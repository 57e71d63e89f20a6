package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

var _ repository.SubscriptionRepository = (*Subscriptions)(nil)

type Subscriptions struct {
	db *DB
}

// Toggle uses the same delete-then-insert-on-conflict sequence as likes.
func (s *Subscriptions) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	res, err := s.db.exec(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = ? AND channel_id = ?`,
		subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("sqldb: unsubscribing %s from %s: %w", subscriberID, channelID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqldb: unsubscribing %s from %s: %w", subscriberID, channelID, err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = s.db.exec(ctx,
		`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		xid.New().String(), subscriberID, channelID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("channel", channelID)
		}
		return false, fmt.Errorf("sqldb: subscribing %s to %s: %w", subscriberID, channelID, err)
	}
	return true, nil
}

// Subscribers lists the users subscribed to channelID.
func (s *Subscriptions) Subscribers(ctx context.Context, channelID string, opts repository.ListOptions) ([]model.UserSummary, error) {
	return s.users(ctx, `s.subscriber_id`, `s.channel_id = ?`, channelID, opts)
}

// Channels lists the channels subscriberID follows.
func (s *Subscriptions) Channels(ctx context.Context, subscriberID string, opts repository.ListOptions) ([]model.UserSummary, error) {
	return s.users(ctx, `s.channel_id`, `s.subscriber_id = ?`, subscriberID, opts)
}

func (s *Subscriptions) users(ctx context.Context, joinCol, where, id string, opts repository.ListOptions) ([]model.UserSummary, error) {
	page, args := pageClause(opts, []any{id})
	rows, err := s.db.query(ctx,
		`SELECT u.id, u.username, u.full_name, u.avatar
		 FROM subscriptions s JOIN users u ON u.id = `+joinCol+`
		 WHERE `+where+`
		 ORDER BY s.id ASC`+page, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing subscriptions for %s: %w", id, err)
	}
	defer rows.Close()

	users := []model.UserSummary{}
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Avatar); err != nil {
			return nil, fmt.Errorf("sqldb: scanning subscription row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
