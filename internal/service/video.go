package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/probe"
	"github.com/sakif/vidtube/internal/repository"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

// VideoService publishes, lists and plays videos.
//
// VISIBILITY:
// Unpublished videos exist only for their owner. Every lookup on behalf of
// someone else answers 404 for them, exactly as for a missing id, so drafts
// cannot be discovered by probing ids.
type VideoService struct {
	videos       repository.VideoRepository
	users        repository.UserRepository
	media        Media
	prober       probe.Prober
	historyLimit int
	logger       *slog.Logger
}

func NewVideoService(
	videos repository.VideoRepository,
	users repository.UserRepository,
	media Media,
	prober probe.Prober,
	historyLimit int,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		videos:       videos,
		users:        users,
		media:        media,
		prober:       prober,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// ListVideosInput mirrors the query string of GET /videos.
type ListVideosInput struct {
	repository.ListOptions
	Query    string
	SortBy   string
	SortType string // "asc" or "desc"
	UserID   string
}

// List returns published videos, plus the caller's drafts when the listing
// is filtered to the caller's own channel.
func (s *VideoService) List(ctx context.Context, callerID string, in ListVideosInput) ([]model.Video, error) {
	switch in.SortBy {
	case "", model.SortCreatedAt, model.SortViews, model.SortDuration, model.SortTitle:
	default:
		return nil, apperror.ValidationFailed("sortBy",
			fmt.Sprintf("sortBy must be one of %s, %s, %s, %s",
				model.SortCreatedAt, model.SortViews, model.SortDuration, model.SortTitle))
	}

	var desc bool
	switch strings.ToLower(in.SortType) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, apperror.ValidationFailed("sortType", "sortType must be asc or desc")
	}

	videos, err := s.videos.List(ctx, repository.VideoQuery{
		ListOptions:        in.ListOptions,
		Query:              strings.TrimSpace(in.Query),
		OwnerID:            in.UserID,
		SortBy:             in.SortBy,
		SortDesc:           desc,
		IncludeUnpublished: in.UserID != "" && in.UserID == callerID,
	})
	if err != nil {
		s.logger.Error("failed to list videos", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/video: listing videos: %w", err)
	}
	return videos, nil
}

// PublishInput is the upload form. Both files are required.
type PublishInput struct {
	Title       string
	Description string
	VideoFile   *upload.StagedFile
	Thumbnail   *upload.StagedFile
}

// Publish measures the video, uploads both files and stores the row. If any
// step fails, the objects uploaded so far are removed and no row is written.
func (s *VideoService) Publish(ctx context.Context, ownerID string, in PublishInput) (*model.Video, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, apperror.ValidationFailed("title", "Title and description are required")
	}
	if err := checkVideoText(title, description); err != nil {
		return nil, err
	}
	if in.VideoFile == nil {
		return nil, apperror.ValidationFailed("videoFile", "Video file is required")
	}
	if in.Thumbnail == nil {
		return nil, apperror.ValidationFailed("thumbnail", "Thumbnail is required")
	}

	// The probe reads the staged copy, before the upload.
	duration, err := s.prober.Duration(ctx, in.VideoFile.Path)
	if err != nil {
		s.logger.Warn("could not measure video duration",
			slog.String("file", in.VideoFile.Filename),
			slog.String("error", err.Error()),
		)
		duration = 0
	}

	videoObj, err := putMedia(ctx, s.media, s.logger, in.VideoFile, storage.KindVideo)
	if err != nil {
		return nil, err
	}
	thumbObj, err := putMedia(ctx, s.media, s.logger, in.Thumbnail, storage.KindImage)
	if err != nil {
		s.media.RemoveQuietly(ctx, videoObj.PublicID, storage.KindVideo)
		return nil, err
	}

	video := &model.Video{
		OwnerID:           ownerID,
		Title:             title,
		Description:       description,
		VideoFile:         videoObj.URL,
		VideoPublicID:     videoObj.PublicID,
		Thumbnail:         thumbObj.URL,
		ThumbnailPublicID: thumbObj.PublicID,
		Duration:          duration,
		IsPublished:       true,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		s.media.RemoveQuietly(ctx, videoObj.PublicID, storage.KindVideo)
		s.media.RemoveQuietly(ctx, thumbObj.PublicID, storage.KindImage)
		logFailure(s.logger, "failed to create video", err, slog.String("title", title))
		return nil, fmt.Errorf("service/video: creating video: %w", err)
	}

	s.logger.Info("video published",
		slog.String("id", video.ID),
		slog.String("ownerID", ownerID),
		slog.Float64("duration", duration),
	)
	return video, nil
}

// Get returns the details view of a video visible to viewerID.
func (s *VideoService) Get(ctx context.Context, id, viewerID string) (*model.VideoDetails, error) {
	d, err := s.videos.Details(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if !d.IsPublished && d.OwnerID != viewerID {
		return nil, apperror.NotFound("video", id)
	}
	return d, nil
}

// Play counts a view and moves the video to the front of the viewer's
// history. It returns the details with the new view count.
func (s *VideoService) Play(ctx context.Context, id, viewerID string) (*model.VideoDetails, error) {
	if _, err := s.visible(ctx, id, viewerID); err != nil {
		return nil, err
	}
	if err := s.videos.IncrementViews(ctx, id); err != nil {
		return nil, fmt.Errorf("service/video: counting view of %s: %w", id, err)
	}
	recordView(ctx)
	if err := s.users.RecordWatch(ctx, viewerID, id, s.historyLimit); err != nil {
		return nil, fmt.Errorf("service/video: recording history of %s: %w", viewerID, err)
	}
	return s.Get(ctx, id, viewerID)
}

// UpdateVideoInput holds the editable fields. Empty strings and a nil
// thumbnail leave the current value in place.
type UpdateVideoInput struct {
	Title       string
	Description string
	Thumbnail   *upload.StagedFile
}

// Update edits title, description or thumbnail. Owner only.
func (s *VideoService) Update(ctx context.Context, callerID, id string, in UpdateVideoInput) (*model.Video, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" && description == "" && in.Thumbnail == nil {
		return nil, apperror.ValidationFailed("title", "Nothing to update")
	}
	if err := checkVideoText(title, description); err != nil {
		return nil, err
	}

	video, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}

	oldThumb := ""
	if in.Thumbnail != nil {
		obj, err := putMedia(ctx, s.media, s.logger, in.Thumbnail, storage.KindImage)
		if err != nil {
			return nil, err
		}
		oldThumb = video.ThumbnailPublicID
		video.Thumbnail = obj.URL
		video.ThumbnailPublicID = obj.PublicID
	}

	if err := s.videos.Update(ctx, video); err != nil {
		if in.Thumbnail != nil {
			s.media.RemoveQuietly(ctx, video.ThumbnailPublicID, storage.KindImage)
		}
		return nil, fmt.Errorf("service/video: updating video %s: %w", id, err)
	}
	if oldThumb != "" && oldThumb != video.ThumbnailPublicID {
		s.media.RemoveQuietly(ctx, oldThumb, storage.KindImage)
	}

	s.logger.Info("video updated", slog.String("id", id))
	return video, nil
}

// Delete removes the row first and the stored files after, so a storage
// failure never leaves a row pointing at deleted media.
func (s *VideoService) Delete(ctx context.Context, callerID, id string) error {
	video, err := s.owned(ctx, callerID, id)
	if err != nil {
		return err
	}
	if err := s.videos.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/video: deleting video %s: %w", id, err)
	}
	s.media.RemoveQuietly(ctx, video.VideoPublicID, storage.KindVideo)
	s.media.RemoveQuietly(ctx, video.ThumbnailPublicID, storage.KindImage)

	s.logger.Info("video deleted", slog.String("id", id), slog.String("ownerID", callerID))
	return nil
}

// TogglePublish flips the published flag. Owner only.
func (s *VideoService) TogglePublish(ctx context.Context, callerID, id string) (*model.Video, error) {
	video, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	video.IsPublished = !video.IsPublished
	if err := s.videos.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("service/video: toggling publish of %s: %w", id, err)
	}
	s.logger.Info("video publish status changed",
		slog.String("id", id),
		slog.Bool("published", video.IsPublished),
	)
	return video, nil
}

// visible loads the video unless it is someone else's draft.
func (s *VideoService) visible(ctx context.Context, id, viewerID string) (*model.Video, error) {
	return visibleVideo(ctx, s.videos, id, viewerID)
}

func (s *VideoService) owned(ctx context.Context, callerID, id string) (*model.Video, error) {
	video, err := s.visible(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(callerID, video.OwnerID, "You are not the owner of this video"); err != nil {
		return nil, err
	}
	return video, nil
}

// visibleVideo is shared by the services that attach things to videos.
func visibleVideo(ctx context.Context, videos repository.VideoRepository, id, viewerID string) (*model.Video, error) {
	video, err := videos.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service: loading video %s: %w", id, err)
		}
		return nil, err
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return nil, apperror.NotFound("video", id)
	}
	return video, nil
}

func checkVideoText(title, description string) error {
	if len(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}
