package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/handler"
	"github.com/sakif/vidtube/internal/repository/sqldb"
	"github.com/sakif/vidtube/internal/server"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

const (
	baseURL     = "http://vidtube.test"
	testOrigin  = "http://localhost:5173"
	password    = "password123"
	missingXID  = "d0s7rhc2g1jc73a0e9g0"
	accessTTL   = 15 * time.Minute
	refreshTTL  = 240 * time.Hour
	historySize = 5
)

// =========================================================================
// HARNESS
// =========================================================================

type envelope struct {
	StatusCode int                   `json:"statusCode"`
	Data       json.RawMessage       `json:"data"`
	Message    string                `json:"message"`
	Errors     []apperror.FieldError `json:"errors"`
	Success    bool                  `json:"success"`
}

type testServer struct {
	t *testing.T
	h http.Handler
}

// newTestServer wires the real server on an in-memory SQLite database and
// a local object store in a temp dir.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqldb.Open(context.Background(), sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewLocal(t.TempDir(), baseURL)
	require.NoError(t, err)
	stager, err := upload.NewStager(t.TempDir(), 10<<20, logger)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(
		"access-secret-for-tests-0123456789",
		"refresh-secret-for-tests-0123456789",
		accessTTL, refreshTTL,
	)
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		Port:         0,
		CORSOrigins:  []string{testOrigin},
		Cookies:      handler.CookieConfig{Secure: false, AccessTTL: accessTTL, RefreshTTL: refreshTTL},
		HistoryLimit: historySize,
	}, server.Deps{
		DB:           db,
		Tokens:       tokens,
		Passwords:    auth.NewPasswordServiceForTest(4),
		Media:        upload.NewBridge(store, "vidtube", logger),
		Stager:       stager,
		MediaHandler: store.Handler(),
	}, logger)
	require.NoError(t, err)

	return &testServer{t: t, h: srv.Handler()}
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

// do sends a JSON request. token may be empty.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

type part struct {
	field, filename, content string
}

// multipartRequest builds a multipart body from plain fields and file parts.
func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	assert.Equal(t, rec.Code, env.StatusCode, "statusCode mirrors the HTTP status")
	return env
}

func data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	env := decode(t, rec)
	require.True(t, env.Success, "body: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type userJSON struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type sessionJSON struct {
	User         userJSON `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

type videoJSON struct {
	ID          string  `json:"_id"`
	OwnerID     string  `json:"ownerId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	Views       int64   `json:"views"`
	Duration    float64 `json:"duration"`
	IsPublished bool    `json:"isPublished"`
	LikesCount  int64   `json:"likesCount"`
	IsLiked     bool    `json:"isLiked"`
}

func (s *testServer) register(username string) userJSON {
	s.t.Helper()
	rec := s.serve(multipartRequest(s.t, http.MethodPost, "/api/v1/users/register", "",
		map[string]string{
			"fullName": strings.ToUpper(username[:1]) + username[1:],
			"email":    username + "@example.com",
			"username": username,
			"password": password,
		},
		part{upload.SlotAvatar, "avatar.png", "png-bytes-" + username},
	))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return data[userJSON](s.t, rec)
}

func (s *testServer) login(username string) sessionJSON {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return data[sessionJSON](s.t, rec)
}

// signup registers and logs in, returning the user and an access token.
func (s *testServer) signup(username string) (userJSON, string) {
	s.t.Helper()
	u := s.register(username)
	return u, s.login(username).AccessToken
}

func (s *testServer) publish(token, title string) videoJSON {
	s.t.Helper()
	rec := s.serve(multipartRequest(s.t, http.MethodPost, "/api/v1/videos", token,
		map[string]string{"title": title, "description": title + " description"},
		part{upload.SlotVideoFile, "clip.mp4", "mp4-bytes"},
		part{upload.SlotThumbnail, "thumb.jpg", "jpg-bytes"},
	))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return data[videoJSON](s.t, rec)
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// =========================================================================
// HEALTH & CROSS-CUTTING
// =========================================================================

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, string(env.Data))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/videos", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := s.serve(req)

	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	paths := []string{
		"/api/v1/users/get-user",
		"/api/v1/videos",
		"/api/v1/tweets",
		"/api/v1/likes/videos",
		"/api/v1/dashboard/stats",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rec := s.do(http.MethodGet, p, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, "Unauthorized request", env.Message)
			assert.NotNil(t, env.Errors, "errors is always an array")
		})
	}
}

func TestInvalidIDsAreRejectedBeforeStorage(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("alice")

	tests := []struct {
		method, path, field string
	}{
		{http.MethodGet, "/api/v1/videos/not-an-id", "videoId"},
		{http.MethodDelete, "/api/v1/tweets/123", "tweetId"},
		{http.MethodPost, "/api/v1/likes/toggle/c/xyz", "commentId"},
		{http.MethodGet, "/api/v1/subscriptions/u/bogus", "subscriberId"},
		{http.MethodPatch, "/api/v1/playlists/add/bad/" + missingXID, "videoId"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, token, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec)
			require.Len(t, env.Errors, 1)
			assert.Equal(t, tt.field, env.Errors[0].Field)
		})
	}
}

func TestPaginationBounds(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("alice")

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusOK},
		{"?page=2&limit=100", http.StatusOK},
		{"?page=0", http.StatusBadRequest},
		{"?limit=0", http.StatusBadRequest},
		{"?limit=101", http.StatusBadRequest},
		{"?page=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/v1/tweets"+tt.query, token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// =========================================================================
// USERS & SESSIONS
// =========================================================================

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	u := s.register("alice")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, strings.HasPrefix(u.Avatar, baseURL+storage.MediaPrefix), u.Avatar)
	assert.Empty(t, u.CoverImage)

	t.Run("stored avatar is served", func(t *testing.T) {
		rec := s.do(http.MethodGet, strings.TrimPrefix(u.Avatar, baseURL), "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "png-bytes-alice", rec.Body.String())
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		rec := s.serve(multipartRequest(t, http.MethodPost, "/api/v1/users/register", "",
			map[string]string{"fullName": "A", "email": "other@example.com", "username": "ALICE", "password": password},
			part{upload.SlotAvatar, "a.png", "x"},
		))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("avatar is required", func(t *testing.T) {
		rec := s.serve(multipartRequest(t, http.MethodPost, "/api/v1/users/register", "",
			map[string]string{"fullName": "Bob", "email": "bob@example.com", "username": "bob", "password": password},
		))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		assert.Equal(t, "Avatar file is required", env.Message)
	})

	t.Run("field validation lists every field", func(t *testing.T) {
		rec := s.serve(multipartRequest(t, http.MethodPost, "/api/v1/users/register", "",
			map[string]string{"fullName": "Bob", "email": "not-an-email", "username": "bob!"},
			part{upload.SlotAvatar, "a.png", "x"},
		))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		fields := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			fields = append(fields, e.Field)
		}
		assert.ElementsMatch(t, []string{"email", "username", "password"}, fields)
	})

	t.Run("unexpected file field", func(t *testing.T) {
		rec := s.serve(multipartRequest(t, http.MethodPost, "/api/v1/users/register", "",
			map[string]string{"fullName": "Bob", "email": "bob@example.com", "username": "bob", "password": password},
			part{upload.SlotAvatar, "a.png", "x"},
			part{upload.SlotVideoFile, "v.mp4", "x"},
		))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginSetsCookies(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")

	rec := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email":    "ALICE@example.com",
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := data[sessionJSON](t, rec)
	assert.Equal(t, "alice", session.User.Username)

	access := cookieByName(rec, auth.AccessCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, session.AccessToken, access.Value)
	refresh := cookieByName(rec, auth.RefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, session.RefreshToken, refresh.Value)

	t.Run("cookie authenticates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/get-user", nil)
		req.AddCookie(access)
		rec := s.serve(req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", data[userJSON](t, rec).Username)
	})

	t.Run("password hash never leaves the server", func(t *testing.T) {
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"username": "alice", "password": "wrongpassword"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "nobody", "password": password}, http.StatusNotFound},
		{"no identifier", map[string]string{"password": password}, http.StatusBadRequest},
		{"no password", map[string]string{"username": "alice"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/v1/users/login", "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, s.serve(req).Code)
	})
}

func TestRefreshRotatesTokens(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	first := s.login("alice")

	rec := s.do(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": first.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := data[sessionJSON](t, rec)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotNil(t, cookieByName(rec, auth.RefreshCookie))

	// The first refresh token was consumed.
	rec = s.do(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": first.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The cookie is accepted too.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: second.RefreshToken})
	assert.Equal(t, http.StatusOK, s.serve(req).Code)

	t.Run("missing token", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/users/refresh-token", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
			"refreshToken": second.AccessToken,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	s.register("alice")
	session := s.login("alice")

	rec := s.do(http.MethodPost, "/api/v1/users/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge, "cookie %s is expired", name)
	}

	rec = s.do(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout revokes the refresh token")
}

func TestAccountSettings(t *testing.T) {
	s := newTestServer(t)
	alice, token := s.signup("alice")

	rec := s.do(http.MethodPatch, "/api/v1/users/change-account-details", token, map[string]string{
		"fullName": "Alice Liddell",
		"email":    "liddell@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alice Liddell", data[userJSON](t, rec).FullName)

	rec = s.do(http.MethodPost, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "wrong-password",
		"newPassword": "brand-new-password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": password,
		"newPassword": "brand-new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": "alice",
		"password": "brand-new-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.serve(multipartRequest(t, http.MethodPatch, "/api/v1/users/change-avatar", token, nil,
		part{upload.SlotAvatar, "new.png", "new-avatar"},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := data[userJSON](t, rec)
	assert.NotEqual(t, alice.Avatar, updated.Avatar)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, strings.TrimPrefix(alice.Avatar, baseURL), "", nil).Code,
		"the old avatar is deleted")

	rec = s.serve(multipartRequest(t, http.MethodPatch, "/api/v1/users/change-coverImage", token, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "cover image file is required")
}

func TestChannelProfile(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")
	s.publish(aliceToken, "first")

	rec := s.do(http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/users/channel/alice", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := data[struct {
		Username         string `json:"username"`
		SubscribersCount int64  `json:"subscribersCount"`
		VideosCount      int64  `json:"videosCount"`
		IsSubscribed     bool   `json:"isSubscribed"`
	}](t, rec)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.Equal(t, int64(1), profile.VideosCount)
	assert.True(t, profile.IsSubscribed)

	rec = s.do(http.MethodGet, "/api/v1/users/channel/nobody", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGitHubRoutesDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/users/auth/github/login", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =========================================================================
// VIDEOS
// =========================================================================

func TestVideoLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")

	v := s.publish(aliceToken, "cats")
	assert.Equal(t, alice.ID, v.OwnerID)
	assert.True(t, v.IsPublished)
	assert.Zero(t, v.Duration, "no prober configured")

	rec := s.do(http.MethodGet, "/api/v1/videos/"+v.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cats", data[videoJSON](t, rec).Title)

	t.Run("views and history", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/videos/"+v.ID+"/views", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, int64(1), data[videoJSON](t, rec).Views)

		rec = s.do(http.MethodGet, "/api/v1/users/history", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		history := data[[]videoJSON](t, rec)
		require.Len(t, history, 1)
		assert.Equal(t, v.ID, history[0].ID)
	})

	t.Run("only the owner edits", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/v1/videos/"+v.ID, bobToken, map[string]string{"title": "mine"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(http.MethodPatch, "/api/v1/videos/"+v.ID, aliceToken, map[string]string{"title": "kittens"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := data[videoJSON](t, rec)
		assert.Equal(t, "kittens", updated.Title)
		assert.Equal(t, "cats description", updated.Description)
	})

	t.Run("thumbnail replacement", func(t *testing.T) {
		rec := s.serve(multipartRequest(t, http.MethodPatch, "/api/v1/videos/"+v.ID, aliceToken, nil,
			part{upload.SlotThumbnail, "new.jpg", "new-thumb"},
		))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		thumb := data[videoJSON](t, rec).Thumbnail
		assert.NotEqual(t, v.Thumbnail, thumb)

		got := s.do(http.MethodGet, strings.TrimPrefix(thumb, baseURL), "", nil)
		assert.Equal(t, "new-thumb", got.Body.String())
	})

	t.Run("drafts are hidden from others", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/v1/videos/toggle/publish/"+v.ID, aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, data[videoJSON](t, rec).IsPublished)

		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/videos/"+v.ID, bobToken, nil).Code)
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/videos/"+v.ID, aliceToken, nil).Code)

		rec = s.do(http.MethodGet, "/api/v1/videos?userId="+alice.ID, bobToken, nil)
		assert.Empty(t, data[[]videoJSON](t, rec))
		rec = s.do(http.MethodGet, "/api/v1/videos?userId="+alice.ID, aliceToken, nil)
		assert.Len(t, data[[]videoJSON](t, rec), 1)

		s.do(http.MethodPatch, "/api/v1/videos/toggle/publish/"+v.ID, aliceToken, nil)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/v1/videos/"+v.ID, bobToken, nil).Code)

		rec := s.do(http.MethodDelete, "/api/v1/videos/"+v.ID, aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/videos/"+v.ID, aliceToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/v1/videos/"+missingXID, aliceToken, nil).Code)
	})
}

func TestPublishValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("alice")

	rec := s.serve(multipartRequest(t, http.MethodPost, "/api/v1/videos", token,
		map[string]string{"title": "no files", "description": "d"},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.serve(multipartRequest(t, http.MethodPost, "/api/v1/videos", token,
		map[string]string{"description": "d"},
		part{upload.SlotVideoFile, "v.mp4", "x"},
		part{upload.SlotThumbnail, "t.jpg", "x"},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, "title", env.Errors[0].Field)
}

func TestListVideos(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("alice")
	for _, title := range []string{"banana", "apple", "cherry"} {
		s.publish(token, title)
	}

	rec := s.do(http.MethodGet, "/api/v1/videos?sortBy=title&sortType=asc&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	videos := data[[]videoJSON](t, rec)
	require.Len(t, videos, 2)
	assert.Equal(t, "apple", videos[0].Title)
	assert.Equal(t, "banana", videos[1].Title)

	rec = s.do(http.MethodGet, "/api/v1/videos?sortBy=title&sortType=asc&limit=2&page=2", token, nil)
	videos = data[[]videoJSON](t, rec)
	require.Len(t, videos, 1)
	assert.Equal(t, "cherry", videos[0].Title)

	rec = s.do(http.MethodGet, "/api/v1/videos?query=cher", token, nil)
	assert.Len(t, data[[]videoJSON](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/videos?sortBy=owner", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/videos?userId=nope", token, nil).Code)
}

// =========================================================================
// SOCIAL
// =========================================================================

func TestLikes(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")
	v := s.publish(aliceToken, "likeable")

	rec := s.do(http.MethodPost, "/api/v1/likes/toggle/v/"+v.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, "Like added", env.Message)
	assert.JSONEq(t, `{"liked":true}`, string(env.Data))

	rec = s.do(http.MethodGet, "/api/v1/videos/"+v.ID, bobToken, nil)
	d := data[videoJSON](t, rec)
	assert.Equal(t, int64(1), d.LikesCount)
	assert.True(t, d.IsLiked)

	rec = s.do(http.MethodGet, "/api/v1/likes/videos", bobToken, nil)
	liked := data[[]videoJSON](t, rec)
	require.Len(t, liked, 1)
	assert.Equal(t, v.ID, liked[0].ID)

	rec = s.do(http.MethodPost, "/api/v1/likes/toggle/v/"+v.ID, bobToken, nil)
	env = decode(t, rec)
	assert.Equal(t, "Like removed", env.Message)
	assert.JSONEq(t, `{"liked":false}`, string(env.Data))

	assert.Equal(t, http.StatusNotFound,
		s.do(http.MethodPost, "/api/v1/likes/toggle/t/"+missingXID, bobToken, nil).Code)
}

func TestComments(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")
	v := s.publish(aliceToken, "discussed")

	type commentJSON struct {
		ID      string `json:"_id"`
		Content string `json:"content"`
	}

	rec := s.do(http.MethodPost, "/api/v1/comments/"+v.ID, bobToken, map[string]string{"content": "first!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := data[commentJSON](t, rec)

	rec = s.do(http.MethodPost, "/api/v1/comments/c/"+c.ID+"/replies", aliceToken, map[string]string{"content": "thanks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/comments/"+v.ID, aliceToken, nil)
	top := data[[]commentJSON](t, rec)
	require.Len(t, top, 1, "replies are not listed as top-level comments")
	assert.Equal(t, "first!", top[0].Content)

	rec = s.do(http.MethodGet, "/api/v1/comments/c/"+c.ID+"/replies", bobToken, nil)
	replies := data[[]commentJSON](t, rec)
	require.Len(t, replies, 1)
	assert.Equal(t, "thanks", replies[0].Content)

	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodPatch, "/api/v1/comments/c/"+c.ID, aliceToken, map[string]string{"content": "edited"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPatch, "/api/v1/comments/c/"+c.ID, bobToken, map[string]string{"content": ""}).Code)

	rec = s.do(http.MethodPatch, "/api/v1/comments/c/"+c.ID, bobToken, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", data[commentJSON](t, rec).Content)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/comments/c/"+c.ID, bobToken, nil).Code)
	rec = s.do(http.MethodGet, "/api/v1/comments/c/"+c.ID+"/replies", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "replies go with their parent")
}

func TestTweetsAndTweetComments(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")

	type tweetJSON struct {
		ID      string `json:"_id"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	rec := s.do(http.MethodPost, "/api/v1/tweets", aliceToken, map[string]string{"title": "hello", "content": "first tweet"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tw := data[tweetJSON](t, rec)

	rec = s.do(http.MethodGet, "/api/v1/tweets/user/"+alice.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, data[[]tweetJSON](t, rec), 1)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/tweets/user/"+missingXID, bobToken, nil).Code)

	rec = s.do(http.MethodPost, "/api/v1/comments/t/"+tw.ID, bobToken, map[string]string{"content": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, "/api/v1/comments/t/"+tw.ID, aliceToken, nil)
	assert.Len(t, data[[]json.RawMessage](t, rec), 1)

	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodPatch, "/api/v1/tweets/"+tw.ID, bobToken, map[string]string{"title": "x", "content": "y"}).Code)
	rec = s.do(http.MethodPatch, "/api/v1/tweets/"+tw.ID, aliceToken, map[string]string{"title": "hello", "content": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", data[tweetJSON](t, rec).Content)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/tweets/"+tw.ID, aliceToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/comments/t/"+tw.ID, aliceToken, nil).Code)
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("alice")
	bob, bobToken := s.signup("bob")

	rec := s.do(http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "self-subscribe")

	rec = s.do(http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscribed":true}`, string(decode(t, rec).Data))

	rec = s.do(http.MethodGet, "/api/v1/subscriptions/c/"+alice.ID, bobToken, nil)
	subs := data[[]userJSON](t, rec)
	require.Len(t, subs, 1)
	assert.Equal(t, bob.ID, subs[0].ID)

	rec = s.do(http.MethodGet, "/api/v1/subscriptions/u/"+bob.ID, bobToken, nil)
	channels := data[[]userJSON](t, rec)
	require.Len(t, channels, 1)
	assert.Equal(t, "alice", channels[0].Username)

	rec = s.do(http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, bobToken, nil)
	assert.JSONEq(t, `{"subscribed":false}`, string(decode(t, rec).Data))

	assert.Equal(t, http.StatusNotFound,
		s.do(http.MethodGet, "/api/v1/subscriptions/c/"+missingXID, bobToken, nil).Code)
}

func TestPlaylists(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")
	v1 := s.publish(aliceToken, "one")
	v2 := s.publish(aliceToken, "two")

	type playlistJSON struct {
		ID     string      `json:"_id"`
		Name   string      `json:"name"`
		Videos []videoJSON `json:"videos"`
	}

	rec := s.do(http.MethodPost, "/api/v1/playlists", aliceToken, map[string]any{
		"name":   "favourites",
		"videos": []string{v1.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pl := data[playlistJSON](t, rec)
	require.Len(t, pl.Videos, 1)

	rec = s.do(http.MethodPost, "/api/v1/playlists", aliceToken, map[string]any{
		"name":   "bad ids",
		"videos": []string{"nope"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	addPath := fmt.Sprintf("/api/v1/playlists/add/%s/%s", v2.ID, pl.ID)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, addPath, bobToken, nil).Code)

	rec = s.do(http.MethodPatch, addPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, data[playlistJSON](t, rec).Videos, 2)

	rec = s.do(http.MethodPatch, addPath, aliceToken, nil)
	assert.Len(t, data[playlistJSON](t, rec).Videos, 2, "adding twice is a no-op")

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/playlists/remove/%s/%s", v1.ID, pl.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	remaining := data[playlistJSON](t, rec).Videos
	require.Len(t, remaining, 1)
	assert.Equal(t, v2.ID, remaining[0].ID)

	// Bob stops seeing v2 in Alice's playlist once it becomes a draft.
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPatch, "/api/v1/videos/toggle/publish/"+v2.ID, aliceToken, nil).Code)
	rec = s.do(http.MethodGet, "/api/v1/playlists/"+pl.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, data[playlistJSON](t, rec).Videos)
	rec = s.do(http.MethodGet, "/api/v1/playlists/"+pl.ID, aliceToken, nil)
	assert.Len(t, data[playlistJSON](t, rec).Videos, 1)
	require.Equal(t, http.StatusOK,
		s.do(http.MethodPatch, "/api/v1/videos/toggle/publish/"+v2.ID, aliceToken, nil).Code)

	rec = s.do(http.MethodPatch, "/api/v1/playlists/"+pl.ID, aliceToken, map[string]string{"name": "renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", data[playlistJSON](t, rec).Name)

	rec = s.do(http.MethodGet, "/api/v1/playlists/user/"+alice.ID, bobToken, nil)
	assert.Len(t, data[[]playlistJSON](t, rec), 1)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/playlists/"+pl.ID, aliceToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/playlists/"+pl.ID, aliceToken, nil).Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("alice")
	_, bobToken := s.signup("bob")

	v := s.publish(aliceToken, "popular")
	s.do(http.MethodPost, "/api/v1/videos/"+v.ID+"/views", bobToken, nil)
	s.do(http.MethodPost, "/api/v1/likes/toggle/v/"+v.ID, bobToken, nil)
	s.do(http.MethodPost, "/api/v1/subscriptions/c/"+alice.ID, bobToken, nil)
	s.do(http.MethodPost, "/api/v1/tweets", aliceToken, map[string]string{"title": "t", "content": "c"})

	rec := s.do(http.MethodGet, "/api/v1/dashboard/stats", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t,
		`{"totalVideos":1,"totalViews":1,"totalSubscribers":1,"totalLikes":1,"totalTweets":1}`,
		string(decode(t, rec).Data))

	rec = s.do(http.MethodGet, "/api/v1/dashboard/videos", aliceToken, nil)
	videos := data[[]videoJSON](t, rec)
	require.Len(t, videos, 1)
	assert.Equal(t, int64(1), videos[0].LikesCount)
}
