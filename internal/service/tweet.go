package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// TweetService manages the short text posts of a channel.
type TweetService struct {
	tweets repository.TweetRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewTweetService(tweets repository.TweetRepository, users repository.UserRepository, logger *slog.Logger) *TweetService {
	return &TweetService{tweets: tweets, users: users, logger: logger}
}

func (s *TweetService) Create(ctx context.Context, ownerID, title, content string) (*model.Tweet, error) {
	title, content, err := checkTweet(title, content)
	if err != nil {
		return nil, err
	}
	tweet := &model.Tweet{Title: title, Content: content, OwnerID: ownerID}
	if err := s.tweets.Create(ctx, tweet); err != nil {
		logFailure(s.logger, "failed to create tweet", err, slog.String("ownerID", ownerID))
		return nil, fmt.Errorf("service/tweet: creating tweet: %w", err)
	}
	s.logger.Info("tweet created", slog.String("id", tweet.ID))
	return s.tweets.GetByID(ctx, tweet.ID)
}

// List is the global feed, oldest first.
func (s *TweetService) List(ctx context.Context, opts repository.ListOptions) ([]model.Tweet, error) {
	tweets, err := s.tweets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/tweet: listing tweets: %w", err)
	}
	return tweets, nil
}

// ListByUser returns 404 for an unknown user rather than an empty page.
func (s *TweetService) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Tweet, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	tweets, err := s.tweets.ListByOwner(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/tweet: listing tweets of %s: %w", userID, err)
	}
	return tweets, nil
}

// Update replaces title and content. Owner only.
func (s *TweetService) Update(ctx context.Context, callerID, id, title, content string) (*model.Tweet, error) {
	title, content, err := checkTweet(title, content)
	if err != nil {
		return nil, err
	}
	tweet, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	tweet.Title = title
	tweet.Content = content
	if err := s.tweets.Update(ctx, tweet); err != nil {
		return nil, fmt.Errorf("service/tweet: updating tweet %s: %w", id, err)
	}
	return tweet, nil
}

// Delete removes the tweet with its comments and likes. Owner only.
func (s *TweetService) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.tweets.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/tweet: deleting tweet %s: %w", id, err)
	}
	s.logger.Info("tweet deleted", slog.String("id", id))
	return nil
}

func (s *TweetService) owned(ctx context.Context, callerID, id string) (*model.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(callerID, tweet.OwnerID, "You are not the owner of this tweet"); err != nil {
		return nil, err
	}
	return tweet, nil
}

func checkTweet(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return "", "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	content, err := checkContent(content)
	if err != nil {
		return "", "", err
	}
	return title, content, nil
}
