package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

// UserService owns registration, sessions and the account settings.
//
// SESSIONS:
// Login issues an access/refresh pair. The refresh token's jti is stored on
// the user; Refresh only accepts the token carrying that jti and replaces
// it, so every refresh token works once. Logout clears the jti.
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	media     Media
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	media Media,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		media:     media,
		logger:    logger,
	}
}

// Tokens is the credential pair returned by login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is a logged-in user with fresh tokens.
type Session struct {
	User *model.User `json:"user"`
	Tokens
}

// RegisterInput carries the registration form. CoverImage is optional.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *upload.StagedFile
	CoverImage *upload.StagedFile
}

// Register creates an account. The username and email are checked before
// anything is uploaded, and uploaded media is removed again if the insert
// fails.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))

	if in.FullName == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("fullName", "All fields are required")
	}
	if err := auth.CheckLength(in.Password); err != nil {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d to %d characters", auth.MinPasswordLen, auth.MaxPasswordLen))
	}
	if in.Avatar == nil {
		return nil, apperror.ValidationFailed("avatar", "Avatar file is required")
	}

	_, err := s.users.FindByLogin(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("User with email or username already exists")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/user: checking existing user: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: %w", err)
	}

	avatar, err := s.put(ctx, in.Avatar, storage.KindImage)
	if err != nil {
		return nil, err
	}
	var cover storage.Object
	if in.CoverImage != nil {
		cover, err = s.put(ctx, in.CoverImage, storage.KindImage)
		if err != nil {
			s.media.RemoveQuietly(ctx, avatar.PublicID, storage.KindImage)
			return nil, err
		}
	}

	user := &model.User{
		Username:           in.Username,
		Email:              in.Email,
		FullName:           in.FullName,
		Avatar:             avatar.URL,
		AvatarPublicID:     avatar.PublicID,
		CoverImage:         cover.URL,
		CoverImagePublicID: cover.PublicID,
		PasswordHash:       hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.media.RemoveQuietly(ctx, avatar.PublicID, storage.KindImage)
		s.media.RemoveQuietly(ctx, cover.PublicID, storage.KindImage)
		logFailure(s.logger, "failed to create user", err, slog.String("username", in.Username))
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login accepts a username or an email (or both) with the password.
func (s *UserService) Login(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" && email == "" {
		return nil, apperror.ValidationFailed("username", "username or email is required")
	}

	user, err := s.users.FindByLogin(ctx, username, email)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("Invalid user credentials")
		}
		return nil, fmt.Errorf("service/user: verifying password: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &Session{User: user, Tokens: tokens}, nil
}

// LoginGitHub creates or refreshes the account linked to a GitHub profile
// and opens a session for it.
func (s *UserService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*Session, error) {
	if gh == nil {
		return nil, errors.New("service/user: GitHub user must not be nil")
	}
	id := gh.ID
	user := &model.User{
		Username: strings.ToLower(gh.Login),
		Email:    strings.ToLower(gh.Email),
		FullName: gh.DisplayName(),
		Avatar:   gh.AvatarURL,
		GitHubID: &id,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: upserting GitHub user %d: %w", gh.ID, err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return &Session{User: user, Tokens: tokens}, nil
}

// Logout revokes every refresh token of the user.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshTokenID(ctx, userID, ""); err != nil {
		return fmt.Errorf("service/user: logging out %s: %w", userID, err)
	}
	s.logger.Info("user logged out", slog.String("userID", userID))
	return nil
}

// Refresh rotates the token pair. A refresh token that was already used,
// or issued before the last logout, is rejected.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperror.Unauthorized("Unauthorized request")
	}

	userID, jti, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperror.Unauthorized("Refresh token expired")
		}
		return nil, apperror.Unauthorized("Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid refresh token")
		}
		return nil, fmt.Errorf("service/user: loading user %s: %w", userID, err)
	}
	if user.RefreshTokenID == "" || user.RefreshTokenID != jti {
		s.logger.Warn("stale refresh token presented", slog.String("userID", userID))
		return nil, apperror.Unauthorized("Refresh token is expired or used")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tokens: tokens}, nil
}

func (s *UserService) issueTokens(ctx context.Context, user *model.User) (Tokens, error) {
	access, err := s.tokens.GenerateAccess(user)
	if err != nil {
		return Tokens{}, fmt.Errorf("service/user: generating access token for %s: %w", user.ID, err)
	}
	refresh, jti, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return Tokens{}, fmt.Errorf("service/user: generating refresh token for %s: %w", user.ID, err)
	}
	if err := s.users.SetRefreshTokenID(ctx, user.ID, jti); err != nil {
		return Tokens{}, fmt.Errorf("service/user: storing refresh token for %s: %w", user.ID, err)
	}
	user.RefreshTokenID = jti
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// ChangePassword checks the old password before storing the new one.
func (s *UserService) ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error {
	if err := s.passwords.Verify(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.ValidationFailed("oldPassword", "Invalid old password")
		}
		return fmt.Errorf("service/user: verifying password: %w", err)
	}
	if err := auth.CheckLength(newPassword); err != nil {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("password must be %d to %d characters", auth.MinPasswordLen, auth.MaxPasswordLen))
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/user: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("service/user: saving password of %s: %w", user.ID, err)
	}
	s.logger.Info("password changed", slog.String("userID", user.ID))
	return nil
}

// UpdateAccount replaces the full name and email.
func (s *UserService) UpdateAccount(ctx context.Context, user *model.User, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, apperror.ValidationFailed("fullName", "All fields are required")
	}

	updated := *user
	updated.FullName = fullName
	updated.Email = email
	if err := s.users.Update(ctx, &updated); err != nil {
		logFailure(s.logger, "failed to update account", err, slog.String("userID", user.ID))
		return nil, fmt.Errorf("service/user: updating account %s: %w", user.ID, err)
	}
	return &updated, nil
}

// ChangeAvatar uploads the new avatar, saves it, then deletes the old one.
func (s *UserService) ChangeAvatar(ctx context.Context, user *model.User, f *upload.StagedFile) (*model.User, error) {
	if f == nil {
		return nil, apperror.ValidationFailed("avatar", "Avatar file is missing")
	}
	return s.replaceImage(ctx, user, f, &user.Avatar, &user.AvatarPublicID)
}

// ChangeCoverImage is ChangeAvatar for the channel banner.
func (s *UserService) ChangeCoverImage(ctx context.Context, user *model.User, f *upload.StagedFile) (*model.User, error) {
	if f == nil {
		return nil, apperror.ValidationFailed("coverImage", "Cover image file is missing")
	}
	return s.replaceImage(ctx, user, f, &user.CoverImage, &user.CoverImagePublicID)
}

// replaceImage points url/publicID (fields of user) at the new upload.
func (s *UserService) replaceImage(ctx context.Context, user *model.User, f *upload.StagedFile, url, publicID *string) (*model.User, error) {
	obj, err := s.put(ctx, f, storage.KindImage)
	if err != nil {
		return nil, err
	}

	oldURL, oldPublicID := *url, *publicID
	*url, *publicID = obj.URL, obj.PublicID
	if err := s.users.Update(ctx, user); err != nil {
		*url, *publicID = oldURL, oldPublicID
		s.media.RemoveQuietly(ctx, obj.PublicID, storage.KindImage)
		return nil, fmt.Errorf("service/user: saving %s of %s: %w", f.Slot, user.ID, err)
	}

	if oldPublicID != obj.PublicID {
		s.media.RemoveQuietly(ctx, oldPublicID, storage.KindImage)
	}
	s.logger.Info("user image changed",
		slog.String("userID", user.ID),
		slog.String("slot", f.Slot),
	)
	return user, nil
}

// Channel returns the public profile of username as seen by viewerID.
func (s *UserService) Channel(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is missing")
	}
	return s.users.ChannelProfile(ctx, username, viewerID)
}

// History returns the user's watched videos, most recent first.
func (s *UserService) History(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	entries, err := s.users.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading history of %s: %w", userID, err)
	}
	return entries, nil
}

func (s *UserService) put(ctx context.Context, f *upload.StagedFile, kind storage.Kind) (storage.Object, error) {
	return putMedia(ctx, s.media, s.logger, f, kind)
}

// putMedia uploads f and counts the outcome.
func putMedia(ctx context.Context, media Media, logger *slog.Logger, f *upload.StagedFile, kind storage.Kind) (storage.Object, error) {
	obj, err := media.Put(ctx, f, kind)
	recordUpload(ctx, f.Slot, err)
	if err != nil {
		logger.Error("media upload failed",
			slog.String("slot", f.Slot),
			slog.String("error", err.Error()),
		)
		return storage.Object{}, fmt.Errorf("service: uploading %s: %w", f.Slot, err)
	}
	return obj, nil
}
