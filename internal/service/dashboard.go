package service

import (
	"context"
	"fmt"

	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// DashboardService serves the channel owner's own numbers.
type DashboardService struct {
	dashboard repository.DashboardRepository
}

func NewDashboardService(dashboard repository.DashboardRepository) *DashboardService {
	return &DashboardService{dashboard: dashboard}
}

func (s *DashboardService) Stats(ctx context.Context, channelID string) (*model.ChannelStats, error) {
	stats, err := s.dashboard.Stats(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("service/dashboard: %w", err)
	}
	return stats, nil
}

// Videos includes drafts; only the owner ever sees this list.
func (s *DashboardService) Videos(ctx context.Context, channelID string) ([]model.ChannelVideo, error) {
	videos, err := s.dashboard.Videos(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("service/dashboard: %w", err)
	}
	return videos, nil
}
