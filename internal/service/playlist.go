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

const (
	MaxPlaylistNameLength = 100
	MaxPlaylistVideos     = 500
)

// PlaylistService manages ordered, duplicate-free video lists.
type PlaylistService struct {
	playlists repository.PlaylistRepository
	videos    repository.VideoRepository
	users     repository.UserRepository
	logger    *slog.Logger
}

func NewPlaylistService(
	playlists repository.PlaylistRepository,
	videos repository.VideoRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *PlaylistService {
	return &PlaylistService{playlists: playlists, videos: videos, users: users, logger: logger}
}

// Create stores a playlist with its initial videos in the given order.
// Every video must be visible to the owner.
func (s *PlaylistService) Create(ctx context.Context, ownerID, name, description string, videoIDs []string) (*model.Playlist, error) {
	name, description, err := checkPlaylist(name, description)
	if err != nil {
		return nil, err
	}
	if len(videoIDs) > MaxPlaylistVideos {
		return nil, apperror.ValidationFailed("videoIds",
			fmt.Sprintf("a playlist can hold at most %d videos", MaxPlaylistVideos))
	}
	for _, id := range videoIDs {
		if _, err := visibleVideo(ctx, s.videos, id, ownerID); err != nil {
			return nil, err
		}
	}

	playlist := &model.Playlist{Name: name, Description: description, OwnerID: ownerID}
	if err := s.playlists.Create(ctx, playlist, videoIDs); err != nil {
		logFailure(s.logger, "failed to create playlist", err, slog.String("ownerID", ownerID))
		return nil, fmt.Errorf("service/playlist: creating playlist: %w", err)
	}
	s.logger.Info("playlist created",
		slog.String("id", playlist.ID),
		slog.Int("videos", len(videoIDs)),
	)
	return s.playlists.GetByID(ctx, playlist.ID, ownerID)
}

// Get returns the playlist as viewerID sees it: another user's unpublished
// videos are left out.
func (s *PlaylistService) Get(ctx context.Context, viewerID, id string) (*model.Playlist, error) {
	return s.playlists.GetByID(ctx, id, viewerID)
}

// ListByUser returns 404 for an unknown user.
func (s *PlaylistService) ListByUser(ctx context.Context, viewerID, userID string) ([]model.Playlist, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	playlists, err := s.playlists.ListByOwner(ctx, userID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("service/playlist: listing playlists of %s: %w", userID, err)
	}
	return playlists, nil
}

// Update renames the playlist. An empty description clears it.
func (s *PlaylistService) Update(ctx context.Context, callerID, id, name, description string) (*model.Playlist, error) {
	name, description, err := checkPlaylist(name, description)
	if err != nil {
		return nil, err
	}
	playlist, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	playlist.Name = name
	playlist.Description = description
	if err := s.playlists.Update(ctx, playlist); err != nil {
		return nil, fmt.Errorf("service/playlist: updating playlist %s: %w", id, err)
	}
	return playlist, nil
}

func (s *PlaylistService) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.playlists.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/playlist: deleting playlist %s: %w", id, err)
	}
	s.logger.Info("playlist deleted", slog.String("id", id))
	return nil
}

// AddVideo appends a video. Adding a member twice changes nothing.
func (s *PlaylistService) AddVideo(ctx context.Context, callerID, playlistID, videoID string) (*model.Playlist, error) {
	playlist, err := s.owned(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}
	if _, err := visibleVideo(ctx, s.videos, videoID, callerID); err != nil {
		return nil, err
	}
	if len(playlist.Videos) >= MaxPlaylistVideos && !containsVideo(playlist.Videos, videoID) {
		return nil, apperror.ValidationFailed("videoId",
			fmt.Sprintf("a playlist can hold at most %d videos", MaxPlaylistVideos))
	}
	if err := s.playlists.AddVideo(ctx, playlistID, videoID); err != nil {
		return nil, fmt.Errorf("service/playlist: adding %s to %s: %w", videoID, playlistID, err)
	}
	return s.playlists.GetByID(ctx, playlistID, callerID)
}

// RemoveVideo drops a video from the playlist; the rest keep their order.
func (s *PlaylistService) RemoveVideo(ctx context.Context, callerID, playlistID, videoID string) (*model.Playlist, error) {
	if _, err := s.owned(ctx, callerID, playlistID); err != nil {
		return nil, err
	}
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return nil, err
	}
	if err := s.playlists.RemoveVideo(ctx, playlistID, videoID); err != nil {
		return nil, fmt.Errorf("service/playlist: removing %s from %s: %w", videoID, playlistID, err)
	}
	return s.playlists.GetByID(ctx, playlistID, callerID)
}

func (s *PlaylistService) owned(ctx context.Context, callerID, id string) (*model.Playlist, error) {
	playlist, err := s.playlists.GetByID(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(callerID, playlist.OwnerID, "You are not the owner of this playlist"); err != nil {
		return nil, err
	}
	return playlist, nil
}

func containsVideo(videos []model.Video, id string) bool {
	for _, v := range videos {
		if v.ID == id {
			return true
		}
	}
	return false
}

func checkPlaylist(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxPlaylistNameLength {
		return "", "", apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxPlaylistNameLength))
	}
	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		return "", "", apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return name, description, nil
}
