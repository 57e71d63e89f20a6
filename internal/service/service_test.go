package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository/sqldb"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeMedia stands in for upload.Bridge. It remembers which objects exist
// and can be told to fail uploads for one slot.
type fakeMedia struct {
	mu       sync.Mutex
	failSlot string
	stored   map[string]storage.Kind
	puts     int
	removed  []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{stored: make(map[string]storage.Kind)}
}

func (m *fakeMedia) Put(_ context.Context, f *upload.StagedFile, kind storage.Kind) (storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == nil {
		return storage.Object{}, upload.ErrNoFile
	}
	if f.Slot == m.failSlot {
		return storage.Object{}, errors.New("store unavailable")
	}
	m.puts++
	id := path.Join("vidtube", string(kind), f.ID)
	m.stored[id] = kind
	return storage.Object{URL: "https://cdn.test/" + id, PublicID: id, Kind: kind}, nil
}

func (m *fakeMedia) RemoveQuietly(_ context.Context, publicID string, _ storage.Kind) {
	if publicID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, publicID)
	m.removed = append(m.removed, publicID)
}

func (m *fakeMedia) has(publicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stored[publicID]
	return ok
}

func (m *fakeMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

type fakeProber struct {
	seconds float64
	err     error
	paths   []string
}

func (p *fakeProber) Duration(_ context.Context, path string) (float64, error) {
	p.paths = append(p.paths, path)
	return p.seconds, p.err
}

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

// testEnv wires every service to one in-memory SQLite database.
type testEnv struct {
	db            *sqldb.DB
	media         *fakeMedia
	prober        *fakeProber
	tokens        *auth.TokenService
	users         *UserService
	videos        *VideoService
	comments      *CommentService
	tweets        *TweetService
	likes         *LikeService
	subscriptions *SubscriptionService
	playlists     *PlaylistService
	dashboard     *DashboardService
}

const testHistoryLimit = 3

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqldb.Open(ctx, sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(
		"access-secret-at-least-16-chars",
		"refresh-secret-at-least-16-chars",
		15*time.Minute, time.Hour,
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	media := newFakeMedia()
	prober := &fakeProber{seconds: 42.5}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	return &testEnv{
		db:            db,
		media:         media,
		prober:        prober,
		tokens:        tokens,
		users:         NewUserService(db.Users(), tokens, passwords, media, logger),
		videos:        NewVideoService(db.Videos(), db.Users(), media, prober, testHistoryLimit, logger),
		comments:      NewCommentService(db.Comments(), db.Videos(), db.Tweets(), logger),
		tweets:        NewTweetService(db.Tweets(), db.Users(), logger),
		likes:         NewLikeService(db.Likes(), db.Videos(), db.Comments(), logger),
		subscriptions: NewSubscriptionService(db.Subscriptions(), db.Users(), logger),
		playlists:     NewPlaylistService(db.Playlists(), db.Videos(), db.Users(), logger),
		dashboard:     NewDashboardService(db.Dashboard()),
	}
}

func staged(slot string) *upload.StagedFile {
	id := xid.New().String()
	return &upload.StagedFile{
		ID:          id,
		Slot:        slot,
		Path:        "/staging/" + id,
		Filename:    slot + ".bin",
		ContentType: "application/octet-stream",
		Size:        1024,
	}
}

const testPassword = "password123"

func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		FullName: username + " Tester",
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
		Avatar:   staged(upload.SlotAvatar),
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) publish(t *testing.T, owner *model.User, title string) *model.Video {
	t.Helper()
	v, err := e.videos.Publish(context.Background(), owner.ID, PublishInput{
		Title:       title,
		Description: title + " description",
		VideoFile:   staged(upload.SlotVideoFile),
		Thumbnail:   staged(upload.SlotThumbnail),
	})
	require.NoError(t, err)
	return v
}

// draft publishes a video and unpublishes it.
func (e *testEnv) draft(t *testing.T, owner *model.User, title string) *model.Video {
	t.Helper()
	v := e.publish(t, owner, title)
	v, err := e.videos.TogglePublish(context.Background(), owner.ID, v.ID)
	require.NoError(t, err)
	require.False(t, v.IsPublished)
	return v
}
