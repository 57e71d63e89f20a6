package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// ===== COMMENT TESTS =====

func TestComments_CreateListAndReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	v := env.publish(t, alice, "cats")
	target := model.Target{Type: model.TargetVideo, ID: v.ID}

	top, err := env.comments.Create(ctx, bob.ID, target, "  nice video ")
	require.NoError(t, err)
	assert.Equal(t, "nice video", top.Content)
	require.NotNil(t, top.Owner)
	assert.Equal(t, "bob", top.Owner.Username)

	reply, err := env.comments.Reply(ctx, alice.ID, top.ID, "thanks!")
	require.NoError(t, err)
	assert.Equal(t, model.TargetVideo, reply.TargetType)
	require.NotNil(t, reply.VideoID)
	assert.Equal(t, v.ID, *reply.VideoID, "replies inherit the parent's target")
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, top.ID, *reply.ParentID)

	list, err := env.comments.List(ctx, target, bob.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1, "replies are not listed at the top level")
	assert.Equal(t, top.ID, list[0].ID)

	replies, err := env.comments.Replies(ctx, bob.ID, top.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)
}

func TestComments_TweetTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	tweet, err := env.tweets.Create(ctx, alice.ID, "hello", "first post")
	require.NoError(t, err)

	c, err := env.comments.Create(ctx, alice.ID, model.Target{Type: model.TargetTweet, ID: tweet.ID}, "self reply")
	require.NoError(t, err)
	require.NotNil(t, c.TweetID)
	assert.Nil(t, c.VideoID)
}

func TestComments_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	draft := env.draft(t, alice, "draft")
	v := env.publish(t, alice, "public")

	_, err := env.comments.Create(ctx, bob.ID, model.Target{Type: model.TargetVideo, ID: draft.ID}, "sneaky")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.comments.List(ctx, model.Target{Type: model.TargetVideo, ID: draft.ID}, bob.ID, repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.comments.Create(ctx, bob.ID, model.Target{Type: model.TargetVideo, ID: v.ID}, "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.comments.Create(ctx, bob.ID, model.Target{Type: model.TargetComment, ID: v.ID}, "x")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.comments.Reply(ctx, bob.ID, "cv37rs3pp9olc6atsptg", "to nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestComments_UpdateAndDeleteOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	v := env.publish(t, alice, "cats")
	c, err := env.comments.Create(ctx, bob.ID, model.Target{Type: model.TargetVideo, ID: v.ID}, "first")
	require.NoError(t, err)

	_, err = env.comments.Update(ctx, alice.ID, c.ID, "edited by alice")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.ErrorIs(t, env.comments.Delete(ctx, alice.ID, c.ID), apperror.ErrForbidden)

	updated, err := env.comments.Update(ctx, bob.ID, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	require.NoError(t, env.comments.Delete(ctx, bob.ID, c.ID))
	_, err = env.comments.Replies(ctx, bob.ID, c.ID, repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestComments_RepliesFollowVideoVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	v := env.publish(t, alice, "soon private")

	top, err := env.comments.Create(ctx, bob.ID, model.Target{Type: model.TargetVideo, ID: v.ID}, "first")
	require.NoError(t, err)
	_, err = env.comments.Reply(ctx, alice.ID, top.ID, "thanks")
	require.NoError(t, err)

	_, err = env.videos.TogglePublish(ctx, alice.ID, v.ID)
	require.NoError(t, err)

	_, err = env.comments.Replies(ctx, bob.ID, top.ID, repository.ListOptions{Limit: 10})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = env.comments.Reply(ctx, bob.ID, top.ID, "still here?")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	replies, err := env.comments.Replies(ctx, alice.ID, top.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, replies, 1, "the owner still sees the thread")
	_, err = env.comments.Reply(ctx, alice.ID, top.ID, "owner reply")
	assert.NoError(t, err)
}

// ===== LIKE TESTS =====

func TestLikes_Toggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	v := env.publish(t, alice, "cats")
	target := model.Target{Type: model.TargetVideo, ID: v.ID}

	liked, err := env.likes.Toggle(ctx, bob.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	d, err := env.videos.Get(ctx, v.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.LikesCount)
	assert.True(t, d.IsLiked)

	liked, err = env.likes.Toggle(ctx, bob.ID, target)
	require.NoError(t, err)
	assert.False(t, liked)

	videos, err := env.likes.LikedVideos(ctx, bob.ID, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestLikes_TargetMustBeVisible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	draft := env.draft(t, alice, "draft")

	_, err := env.likes.Toggle(ctx, bob.ID, model.Target{Type: model.TargetVideo, ID: draft.ID})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.likes.Toggle(ctx, bob.ID, model.Target{Type: model.TargetTweet, ID: "cv37rs3pp9olc6atsptg"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	liked, err := env.likes.Toggle(ctx, alice.ID, model.Target{Type: model.TargetVideo, ID: draft.ID})
	require.NoError(t, err)
	assert.True(t, liked, "owners may like their own drafts")

	note, err := env.comments.Create(ctx, alice.ID, model.Target{Type: model.TargetVideo, ID: draft.ID}, "note to self")
	require.NoError(t, err)
	_, err = env.likes.Toggle(ctx, bob.ID, model.Target{Type: model.TargetComment, ID: note.ID})
	assert.ErrorIs(t, err, apperror.ErrNotFound, "comments under a draft are hidden too")
	liked, err = env.likes.Toggle(ctx, alice.ID, model.Target{Type: model.TargetComment, ID: note.ID})
	require.NoError(t, err)
	assert.True(t, liked)
}

// ===== SUBSCRIPTION TESTS =====

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	_, err := env.subscriptions.Toggle(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.subscriptions.Toggle(ctx, bob.ID, "cv37rs3pp9olc6atsptg")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	on, err := env.subscriptions.Toggle(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, on)

	subs, err := env.subscriptions.Subscribers(ctx, alice.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "bob", subs[0].Username)

	channels, err := env.subscriptions.Channels(ctx, bob.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "alice", channels[0].Username)

	off, err := env.subscriptions.Toggle(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, off)

	_, err = env.subscriptions.Subscribers(ctx, "cv37rs3pp9olc6atsptg", repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// ===== PLAYLIST TESTS =====

func playlistVideoIDs(p *model.Playlist) []string {
	ids := make([]string, 0, len(p.Videos))
	for _, v := range p.Videos {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestPlaylists_Membership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	v1 := env.publish(t, alice, "one")
	v2 := env.publish(t, alice, "two")
	v3 := env.publish(t, alice, "three")

	p, err := env.playlists.Create(ctx, alice.ID, "mix", "", []string{v2.ID, v1.ID, v2.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{v2.ID, v1.ID}, playlistVideoIDs(p))

	p, err = env.playlists.AddVideo(ctx, alice.ID, p.ID, v3.ID)
	require.NoError(t, err)
	p, err = env.playlists.AddVideo(ctx, alice.ID, p.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{v2.ID, v1.ID, v3.ID}, playlistVideoIDs(p), "adding a member twice is a no-op")

	p, err = env.playlists.RemoveVideo(ctx, alice.ID, p.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{v2.ID, v3.ID}, playlistVideoIDs(p))
}

func TestPlaylists_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	v := env.publish(t, alice, "one")

	p, err := env.playlists.Create(ctx, alice.ID, "mine", "desc", nil)
	require.NoError(t, err)

	_, err = env.playlists.AddVideo(ctx, bob.ID, p.ID, v.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = env.playlists.Update(ctx, bob.ID, p.ID, "theirs", "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.ErrorIs(t, env.playlists.Delete(ctx, bob.ID, p.ID), apperror.ErrForbidden)

	updated, err := env.playlists.Update(ctx, alice.ID, p.ID, "renamed", "")
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	lists, err := env.playlists.ListByUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)

	require.NoError(t, env.playlists.Delete(ctx, alice.ID, p.ID))
	_, err = env.playlists.Get(ctx, alice.ID, p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPlaylists_RejectsHiddenVideos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	draft := env.draft(t, alice, "draft")

	_, err := env.playlists.Create(ctx, bob.ID, "stolen", "", []string{draft.ID})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.playlists.Create(ctx, bob.ID, "  ", "", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.playlists.ListByUser(ctx, bob.ID, "cv37rs3pp9olc6atsptg")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPlaylists_HideOthersDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	public := env.publish(t, alice, "public")
	draft := env.draft(t, alice, "secret draft")

	p, err := env.playlists.Create(ctx, alice.ID, "mix", "", []string{public.ID, draft.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{public.ID, draft.ID}, playlistVideoIDs(p))

	seen, err := env.playlists.Get(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{public.ID}, playlistVideoIDs(seen))

	lists, err := env.playlists.ListByUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, []string{public.ID}, playlistVideoIDs(&lists[0]))

	own, err := env.playlists.Get(ctx, alice.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{public.ID, draft.ID}, playlistVideoIDs(own))

	_, err = env.videos.TogglePublish(ctx, alice.ID, draft.ID)
	require.NoError(t, err)
	seen, err = env.playlists.Get(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{public.ID, draft.ID}, playlistVideoIDs(seen), "republished videos come back in place")
}

// ===== TWEET TESTS =====

func TestTweets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	tweet, err := env.tweets.Create(ctx, alice.ID, "news", "we shipped")
	require.NoError(t, err)
	require.NotNil(t, tweet.Owner)
	assert.Equal(t, "alice", tweet.Owner.Username)

	_, err = env.tweets.Create(ctx, alice.ID, "", "no title")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.tweets.Update(ctx, bob.ID, tweet.ID, "mine now", "x")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	updated, err := env.tweets.Update(ctx, alice.ID, tweet.ID, "news", "we shipped twice")
	require.NoError(t, err)
	assert.Equal(t, "we shipped twice", updated.Content)

	byAlice, err := env.tweets.ListByUser(ctx, alice.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byAlice, 1)

	_, err = env.tweets.ListByUser(ctx, "cv37rs3pp9olc6atsptg", repository.ListOptions{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, env.tweets.Delete(ctx, bob.ID, tweet.ID), apperror.ErrForbidden)
	require.NoError(t, env.tweets.Delete(ctx, alice.ID, tweet.ID))

	all, err := env.tweets.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

// ===== DASHBOARD TESTS =====

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	v := env.publish(t, alice, "one")
	env.draft(t, alice, "two")

	_, err := env.videos.Play(ctx, v.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.likes.Toggle(ctx, bob.ID, model.Target{Type: model.TargetVideo, ID: v.ID})
	require.NoError(t, err)
	_, err = env.subscriptions.Toggle(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = env.tweets.Create(ctx, alice.ID, "t", "c")
	require.NoError(t, err)

	stats, err := env.dashboard.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelStats{
		TotalVideos:      2,
		TotalViews:       1,
		TotalSubscribers: 1,
		TotalLikes:       1,
		TotalTweets:      1,
	}, *stats)

	videos, err := env.dashboard.Videos(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, videos, 2, "drafts included")
	assert.Equal(t, "two", videos[0].Title, "newest first")
	assert.Equal(t, int64(1), videos[1].LikesCount)
}
