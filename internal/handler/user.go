package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
	"github.com/sakif/vidtube/internal/upload"
)

const oauthStateCookie = "oauth_state"

// UserHandler serves /api/v1/users: accounts, sessions and channels.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister, HandleLogin, HandleLogout, HandleRefresh → sessions
//   - HandleChangePassword, HandleUpdateAccount, HandleChangeAvatar,
//     HandleChangeCoverImage → account settings of the caller
//   - HandleCurrentUser, HandleChannel, HandleHistory → reads
//   - HandleGitHubLogin, HandleGitHubCallback → optional OAuth login
//
// Login and refresh set both tokens as HttpOnly cookies AND return them in
// the body, so browser and non-browser clients work the same way.
type UserHandler struct {
	users   *service.UserService
	github  *auth.GitHubProvider // nil when GitHub login is not configured
	cookies CookieConfig
	logger  *slog.Logger
}

func NewUserHandler(
	users *service.UserService,
	github *auth.GitHubProvider,
	cookies CookieConfig,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		users:   users,
		github:  github,
		cookies: cookies,
		logger:  logger,
	}
}

type registerForm struct {
	FullName string `form:"fullName" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,email"`
	Username string `form:"username" validate:"required,alphanum,max=30"`
	Password string `form:"password" validate:"required"`
}

// HandleRegister creates an account from a multipart form.
//
// HTTP: POST /api/v1/users/register
// FORM: fullName, email, username, password, avatar (file), coverImage (file, optional)
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form := registerForm{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := validateStruct(form); err != nil {
		response.Error(w, err)
		return
	}

	files := upload.FilesFromContext(r.Context())
	user, err := h.users.Register(r.Context(), service.RegisterInput{
		FullName:   form.FullName,
		Email:      form.Email,
		Username:   form.Username,
		Password:   form.Password,
		Avatar:     files.Get(upload.SlotAvatar),
		CoverImage: files.Get(upload.SlotCoverImage),
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, user, "User registered successfully")
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin opens a session.
//
// HTTP: POST /api/v1/users/login
// REQUEST BODY: {"username": "alice", "password": "..."} (or "email")
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.users.Login(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.cookies.set(w, session.Tokens)
	response.JSON(w, http.StatusOK, session, "User logged in successfully")
}

// HandleLogout revokes the refresh token and clears both cookies.
//
// HTTP: POST /api/v1/users/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := h.users.Logout(r.Context(), user.ID); err != nil {
		response.Error(w, err)
		return
	}
	h.cookies.clear(w)
	response.JSON(w, http.StatusOK, struct{}{}, "User logged out")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh trades a refresh token for a new pair. The cookie wins over
// the body when both are present.
//
// HTTP: POST /api/v1/users/refresh-token
func (h *UserHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeOptionalJSON(w, r, &req); err != nil {
			response.Error(w, err)
			return
		}
		token = req.RefreshToken
	}

	session, err := h.users.Refresh(r.Context(), token)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.cookies.set(w, session.Tokens)
	response.JSON(w, http.StatusOK, session.Tokens, "Access token refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// HandleChangePassword replaces the caller's password.
//
// HTTP: POST /api/v1/users/change-password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), currentUser(r), req.OldPassword, req.NewPassword); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

// HandleCurrentUser returns the caller.
//
// HTTP: GET /api/v1/users/get-user
func (h *UserHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, currentUser(r), "Current user fetched successfully")
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// HandleUpdateAccount replaces the caller's full name and email.
//
// HTTP: PATCH /api/v1/users/change-account-details
func (h *UserHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.users.UpdateAccount(r.Context(), currentUser(r), req.FullName, req.Email)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, user, "Account details updated successfully")
}

// HandleChangeAvatar stores the "avatar" file as the new avatar.
//
// HTTP: PATCH /api/v1/users/change-avatar
func (h *UserHandler) HandleChangeAvatar(w http.ResponseWriter, r *http.Request) {
	f := upload.FilesFromContext(r.Context()).Get(upload.SlotAvatar)
	user, err := h.users.ChangeAvatar(r.Context(), currentUser(r), f)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, user, "Avatar updated successfully")
}

// HandleChangeCoverImage stores the "coverImage" file as the new cover.
//
// HTTP: PATCH /api/v1/users/change-coverImage
func (h *UserHandler) HandleChangeCoverImage(w http.ResponseWriter, r *http.Request) {
	f := upload.FilesFromContext(r.Context()).Get(upload.SlotCoverImage)
	user, err := h.users.ChangeCoverImage(r.Context(), currentUser(r), f)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, user, "Cover image updated successfully")
}

// HandleChannel returns a channel profile with its subscription counts.
//
// HTTP: GET /api/v1/users/channel/{username}
func (h *UserHandler) HandleChannel(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		response.Error(w, apperror.ValidationFailed("username", "username is required"))
		return
	}

	profile, err := h.users.Channel(r.Context(), username, currentUser(r).ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, profile, "User channel fetched successfully")
}

// HandleHistory returns the caller's watch history, newest first.
//
// HTTP: GET /api/v1/users/history
func (h *UserHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.users.History(r.Context(), currentUser(r).ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, history, "Watch history fetched successfully")
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /api/v1/users/auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the redirect.
// HandleGitHubCallback only continues when GitHub hands back the same value.
func (h *UserHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /api/v1/users/auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state cookie (CSRF)
//  2. Exchange the code for a GitHub profile
//  3. Upsert the user and open a session
//  4. Set the session cookies and return the session like HandleLogin
func (h *UserHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		response.Error(w, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		response.Error(w, apperror.Unauthorized("GitHub authorization was denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		response.Error(w, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		response.Error(w, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	session, err := h.users.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.cookies.set(w, session.Tokens)
	response.JSON(w, http.StatusOK, session, "User logged in with GitHub")
}
