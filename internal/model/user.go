// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Go favours composition over
// inheritance, so richer views (channel profile, video details) embed the
// base entity instead of extending it.
package model

import "time"

// User represents a registered account. Every user is also a channel.
//
// JSON TAGS AND SECRETS:
// Fields tagged `json:"-"` never leave the server. PasswordHash and
// RefreshTokenID would let an attacker impersonate the user; the public ids
// of stored media are internal keys for the object store.
//
// WHY GitHubID *int64?
// Accounts created through /register have no GitHub identity. A nil pointer
// maps to SQL NULL, and the UNIQUE index on github_id ignores NULLs.
type User struct {
	ID                 string    `json:"_id"`
	Username           string    `json:"username"` // always lowercase
	Email              string    `json:"email"`
	FullName           string    `json:"fullName"`
	Avatar             string    `json:"avatar"`
	AvatarPublicID     string    `json:"-"`
	CoverImage         string    `json:"coverImage"`
	CoverImagePublicID string    `json:"-"`
	PasswordHash       string    `json:"-"`
	RefreshTokenID     string    `json:"-"` // jti of the only refresh token that is still accepted
	GitHubID           *int64    `json:"githubId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Summary is the projection embedded as "owner" in other entities.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
	}
}

// UserSummary is the public face of a user inside other resources.
type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// ChannelProfile is the aggregated view served by /users/channel/{username}.
type ChannelProfile struct {
	ID                        string    `json:"_id"`
	Username                  string    `json:"username"`
	Email                     string    `json:"email"`
	FullName                  string    `json:"fullName"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	VideosCount               int64     `json:"videosCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// HistoryEntry is one watched video, newest first in the history view.
type HistoryEntry struct {
	Video
	WatchedAt time.Time `json:"watchedAt"`
}
