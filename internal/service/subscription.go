package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// SubscriptionService manages who follows which channel. Channels are
// users, so both ends of a subscription are user ids.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	logger        *slog.Logger
}

func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{subscriptions: subscriptions, users: users, logger: logger}
}

// Toggle subscribes or unsubscribes and returns the state after the call.
func (s *SubscriptionService) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if subscriberID == channelID {
		return false, apperror.ValidationFailed("channelId", "You cannot subscribe to your own channel")
	}

	subscribed, err := s.subscriptions.Toggle(ctx, subscriberID, channelID)
	if err != nil {
		logFailure(s.logger, "failed to toggle subscription", err, slog.String("channelID", channelID))
		return false, fmt.Errorf("service/subscription: toggling %s -> %s: %w", subscriberID, channelID, err)
	}
	recordToggle(ctx, "subscription", subscribed)

	s.logger.Info("subscription toggled",
		slog.String("subscriberID", subscriberID),
		slog.String("channelID", channelID),
		slog.Bool("subscribed", subscribed),
	)
	return subscribed, nil
}

// Subscribers lists the users following channelID.
func (s *SubscriptionService) Subscribers(ctx context.Context, channelID string, opts repository.ListOptions) ([]model.UserSummary, error) {
	if _, err := s.users.GetByID(ctx, channelID); err != nil {
		return nil, err
	}
	users, err := s.subscriptions.Subscribers(ctx, channelID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/subscription: listing subscribers of %s: %w", channelID, err)
	}
	return users, nil
}

// Channels lists the channels subscriberID follows.
func (s *SubscriptionService) Channels(ctx context.Context, subscriberID string, opts repository.ListOptions) ([]model.UserSummary, error) {
	if _, err := s.users.GetByID(ctx, subscriberID); err != nil {
		return nil, err
	}
	channels, err := s.subscriptions.Channels(ctx, subscriberID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/subscription: listing channels of %s: %w", subscriberID, err)
	}
	return channels, nil
}
