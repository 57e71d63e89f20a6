package model

import "time"

// TargetType is the discriminant of the polymorphic Like and Comment
// targets. Exactly one reference column matching the type is populated.
type TargetType string

const (
	TargetVideo   TargetType = "video"
	TargetComment TargetType = "comment"
	TargetTweet   TargetType = "tweet"
)

// Target names the entity a like or comment points at.
type Target struct {
	Type TargetType
	ID   string
}

// Comment belongs to either a video or a tweet. Replies carry ParentID and
// inherit their parent's target; the parent is fixed at creation.
type Comment struct {
	ID         string       `json:"_id"`
	Content    string       `json:"content"`
	TargetType TargetType   `json:"targetType"`
	VideoID    *string      `json:"video,omitempty"`
	TweetID    *string      `json:"tweet,omitempty"`
	ParentID   *string      `json:"parentComment,omitempty"`
	OwnerID    string       `json:"ownerId"`
	Owner      *UserSummary `json:"owner,omitempty"`
	LikesCount int64        `json:"likesCount"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Target returns the video or tweet the comment is attached to.
func (c *Comment) Target() Target {
	if c.TargetType == TargetTweet && c.TweetID != nil {
		return Target{Type: TargetTweet, ID: *c.TweetID}
	}
	if c.VideoID != nil {
		return Target{Type: TargetVideo, ID: *c.VideoID}
	}
	return Target{Type: c.TargetType}
}
