// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqldb implements them for SQLite and
// Postgres; service tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/vidtube/internal/model"
)

// ListOptions is an offset/limit window.
type ListOptions struct {
	Limit  int
	Offset int
}

// VideoQuery filters and orders the public video listing.
type VideoQuery struct {
	ListOptions
	Query    string // case-insensitive substring of title or description
	OwnerID  string
	SortBy   string // one of the model.Sort* constants; empty means insertion order
	SortDesc bool
	// IncludeUnpublished lists drafts too. Only set when OwnerID is the caller.
	IncludeUnpublished bool
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// FindByLogin matches a username or an email; either may be empty.
	FindByLogin(ctx context.Context, username, email string) (*model.User, error)
	// Update writes every mutable column of the user.
	Update(ctx context.Context, user *model.User) error
	SetRefreshTokenID(ctx context.Context, userID, tokenID string) error
	UpsertGitHub(ctx context.Context, user *model.User) error

	ChannelProfile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error)
	// RecordWatch moves videoID to the front of the user's history and keeps
	// at most limit entries.
	RecordWatch(ctx context.Context, userID, videoID string, limit int) error
	History(ctx context.Context, userID string) ([]model.HistoryEntry, error)
}

type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	Details(ctx context.Context, id, viewerID string) (*model.VideoDetails, error)
	List(ctx context.Context, q VideoQuery) ([]model.Video, error)
	Update(ctx context.Context, video *model.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByTarget returns top-level comments only.
	ListByTarget(ctx context.Context, target model.Target, opts ListOptions) ([]model.Comment, error)
	ListReplies(ctx context.Context, parentID string, opts ListOptions) ([]model.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

type TweetRepository interface {
	Create(ctx context.Context, tweet *model.Tweet) error
	GetByID(ctx context.Context, id string) (*model.Tweet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Tweet, error)
	Update(ctx context.Context, tweet *model.Tweet) error
	Delete(ctx context.Context, id string) error
}

type LikeRepository interface {
	// Toggle removes the like if present, otherwise adds it. It reports the
	// state after the call.
	Toggle(ctx context.Context, userID string, target model.Target) (bool, error)
	Count(ctx context.Context, target model.Target) (int64, error)
	LikedVideos(ctx context.Context, userID string, opts ListOptions) ([]model.Video, error)
}

type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string, opts ListOptions) ([]model.UserSummary, error)
	Channels(ctx context.Context, subscriberID string, opts ListOptions) ([]model.UserSummary, error)
}

type PlaylistRepository interface {
	// Create stores the playlist with its initial videos in order; repeated
	// ids are kept once.
	Create(ctx context.Context, playlist *model.Playlist, videoIDs []string) error
	// GetByID and ListByOwner leave out videos that are unpublished and not
	// owned by viewerID.
	GetByID(ctx context.Context, id, viewerID string) (*model.Playlist, error)
	ListByOwner(ctx context.Context, ownerID, viewerID string) ([]model.Playlist, error)
	Update(ctx context.Context, playlist *model.Playlist) error
	Delete(ctx context.Context, id string) error
	// AddVideo appends videoID; adding a member twice is a no-op.
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

type DashboardRepository interface {
	Stats(ctx context.Context, channelID string) (*model.ChannelStats, error)
	Videos(ctx context.Context, channelID string) ([]model.ChannelVideo, error)
}
