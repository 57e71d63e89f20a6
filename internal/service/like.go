package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// LikeService toggles likes on videos, comments and tweets.
type LikeService struct {
	likes    repository.LikeRepository
	videos   repository.VideoRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewLikeService(
	likes repository.LikeRepository,
	videos repository.VideoRepository,
	comments repository.CommentRepository,
	logger *slog.Logger,
) *LikeService {
	return &LikeService{likes: likes, videos: videos, comments: comments, logger: logger}
}

// Toggle likes the target, or unlikes it if the user already did. It
// returns the state after the call. A missing target is 404; so is someone
// else's draft video, or a comment under one.
func (s *LikeService) Toggle(ctx context.Context, userID string, target model.Target) (bool, error) {
	if err := s.checkVisible(ctx, userID, target); err != nil {
		return false, err
	}

	liked, err := s.likes.Toggle(ctx, userID, target)
	if err != nil {
		logFailure(s.logger, "failed to toggle like", err,
			slog.String("target", string(target.Type)),
			slog.String("targetID", target.ID),
		)
		return false, fmt.Errorf("service/like: toggling like on %s %s: %w", target.Type, target.ID, err)
	}
	recordToggle(ctx, "like_"+string(target.Type), liked)

	s.logger.Debug("like toggled",
		slog.String("userID", userID),
		slog.String("target", string(target.Type)),
		slog.String("targetID", target.ID),
		slog.Bool("liked", liked),
	)
	return liked, nil
}

func (s *LikeService) checkVisible(ctx context.Context, userID string, target model.Target) error {
	switch target.Type {
	case model.TargetVideo:
		_, err := visibleVideo(ctx, s.videos, target.ID, userID)
		return err
	case model.TargetComment:
		comment, err := s.comments.GetByID(ctx, target.ID)
		if err != nil {
			return err
		}
		if comment.VideoID != nil {
			_, err = visibleVideo(ctx, s.videos, *comment.VideoID, userID)
		}
		return err
	}
	return nil
}

// LikedVideos lists what the user liked, most recent first.
func (s *LikeService) LikedVideos(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Video, error) {
	videos, err := s.likes.LikedVideos(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/like: listing liked videos of %s: %w", userID, err)
	}
	return videos, nil
}
