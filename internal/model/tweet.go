package model

import "time"

type Tweet struct {
	ID         string       `json:"_id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	OwnerID    string       `json:"ownerId"`
	Owner      *UserSummary `json:"owner,omitempty"`
	LikesCount int64        `json:"likesCount"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
