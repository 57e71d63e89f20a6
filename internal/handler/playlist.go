package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
)

type PlaylistHandler struct {
	playlists *service.PlaylistService
	logger    *slog.Logger
}

func NewPlaylistHandler(playlists *service.PlaylistService, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, logger: logger}
}

type createPlaylistRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Videos      []string `json:"videos" validate:"max=500,dive,xid"`
}

type updatePlaylistRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// HandleCreate creates a playlist, optionally seeded with videos.
//
// HTTP: POST /api/v1/playlist
// REQUEST BODY: {"name": "Favourites", "description": "", "videos": ["<videoId>"]}
func (h *PlaylistHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	playlist, err := h.playlists.Create(r.Context(), currentUser(r).ID, req.Name, req.Description, req.Videos)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, playlist, "Playlist created successfully")
}

// HandleListByUser lists a user's playlists.
//
// HTTP: GET /api/v1/playlist/user/{userId}
func (h *PlaylistHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Error(w, err)
		return
	}

	playlists, err := h.playlists.ListByUser(r.Context(), currentUser(r).ID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, playlists, "User playlists fetched successfully")
}

// HandleGet returns a playlist with its videos.
//
// HTTP: GET /api/v1/playlist/{playlistId}
func (h *PlaylistHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playlistId")
	if err != nil {
		response.Error(w, err)
		return
	}

	playlist, err := h.playlists.Get(r.Context(), currentUser(r).ID, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, playlist, "Playlist fetched successfully")
}

// HandleUpdate renames a playlist. Owner only.
//
// HTTP: PATCH /api/v1/playlist/{playlistId}
func (h *PlaylistHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playlistId")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req updatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	playlist, err := h.playlists.Update(r.Context(), currentUser(r).ID, id, req.Name, req.Description)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, playlist, "Playlist updated successfully")
}

// HandleDelete removes a playlist. The videos themselves are untouched.
//
// HTTP: DELETE /api/v1/playlist/{playlistId}
func (h *PlaylistHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playlistId")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.playlists.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Playlist deleted successfully")
}

// HandleAddVideo adds a video to a playlist.
//
// HTTP: PATCH /api/v1/playlist/add/{videoId}/{playlistId}
func (h *PlaylistHandler) HandleAddVideo(w http.ResponseWriter, r *http.Request) {
	videoID, playlistID, err := playlistMemberIDs(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	playlist, err := h.playlists.AddVideo(r.Context(), currentUser(r).ID, playlistID, videoID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, playlist, "Video added to playlist")
}

// HandleRemoveVideo takes a video out of a playlist.
//
// HTTP: PATCH /api/v1/playlist/remove/{videoId}/{playlistId}
func (h *PlaylistHandler) HandleRemoveVideo(w http.ResponseWriter, r *http.Request) {
	videoID, playlistID, err := playlistMemberIDs(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	playlist, err := h.playlists.RemoveVideo(r.Context(), currentUser(r).ID, playlistID, videoID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, playlist, "Video removed from playlist")
}

func playlistMemberIDs(r *http.Request) (videoID, playlistID string, err error) {
	if videoID, err = pathID(r, "videoId"); err != nil {
		return "", "", err
	}
	if playlistID, err = pathID(r, "playlistId"); err != nil {
		return "", "", err
	}
	return videoID, playlistID, nil
}
