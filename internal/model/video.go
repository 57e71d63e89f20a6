package model

import "time"

type Video struct {
	ID                string       `json:"_id"`
	OwnerID           string       `json:"ownerId"`
	Owner             *UserSummary `json:"owner,omitempty"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	VideoFile         string       `json:"videoFile"`
	VideoPublicID     string       `json:"-"`
	Thumbnail         string       `json:"thumbnail"`
	ThumbnailPublicID string       `json:"-"`
	Duration          float64      `json:"duration"` // seconds
	Views             int64        `json:"views"`
	IsPublished       bool         `json:"isPublished"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// VideoDetails is the single-video view: the video plus engagement counters
// computed for the viewer.
type VideoDetails struct {
	Video
	LikesCount    int64 `json:"likesCount"`
	CommentsCount int64 `json:"commentsCount"`
	IsLiked       bool  `json:"isLiked"`
}

// Sortable video fields accepted by the list endpoint.
const (
	SortCreatedAt = "createdAt"
	SortViews     = "views"
	SortDuration  = "duration"
	SortTitle     = "title"
)
