package handler

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
	"github.com/sakif/vidtube/internal/upload"
)

// VideoHandler serves /api/v1/videos.
type VideoHandler struct {
	videos *service.VideoService
	logger *slog.Logger
}

func NewVideoHandler(videos *service.VideoService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{videos: videos, logger: logger}
}

// HandleList returns a page of videos.
//
// HTTP: GET /api/v1/videos?page=1&limit=10&query=cats&sortBy=views&sortType=desc&userId=...
//
// Without userId this is the public feed. With the caller's own userId the
// caller's drafts are included.
func (h *VideoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	q := r.URL.Query()
	in := service.ListVideosInput{
		ListOptions: opts,
		Query:       q.Get("query"),
		SortBy:      q.Get("sortBy"),
		SortType:    q.Get("sortType"),
		UserID:      q.Get("userId"),
	}
	if in.UserID != "" {
		if err := validateStruct(struct {
			UserID string `json:"userId" validate:"xid"`
		}{in.UserID}); err != nil {
			response.Error(w, err)
			return
		}
	}

	videos, err := h.videos.List(r.Context(), currentUser(r).ID, in)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, videos, "Videos fetched successfully")
}

type publishForm struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
}

// HandlePublish uploads a video with its thumbnail.
//
// HTTP: POST /api/v1/videos
// FORM: title, description, videoFile (file), thumbnail (file)
func (h *VideoHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	form := publishForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if err := validateStruct(form); err != nil {
		response.Error(w, err)
		return
	}

	files := upload.FilesFromContext(r.Context())
	video, err := h.videos.Publish(r.Context(), currentUser(r).ID, service.PublishInput{
		Title:       form.Title,
		Description: form.Description,
		VideoFile:   files.Get(upload.SlotVideoFile),
		Thumbnail:   files.Get(upload.SlotThumbnail),
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, video, "Video published successfully")
}

// HandleGet returns one video with its owner and like count.
//
// HTTP: GET /api/v1/videos/{videoId}
func (h *VideoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		response.Error(w, err)
		return
	}

	video, err := h.videos.Get(r.Context(), id, currentUser(r).ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, video, "Video fetched successfully")
}

// HandleView counts a view and records it in the caller's history.
//
// HTTP: POST /api/v1/videos/{videoId}/views
func (h *VideoHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		response.Error(w, err)
		return
	}

	video, err := h.videos.Play(r.Context(), id, currentUser(r).ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, video, "View recorded")
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// HandleUpdate edits title, description or thumbnail.
//
// HTTP: PATCH /api/v1/videos/{videoId}
//
// Accepts either a multipart form (needed to send a thumbnail) or a JSON
// body with title and description.
func (h *VideoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		response.Error(w, err)
		return
	}

	var req updateVideoRequest
	if isMultipart(r) {
		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
	} else if err := decodeOptionalJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	video, err := h.videos.Update(r.Context(), currentUser(r).ID, id, service.UpdateVideoInput{
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   upload.FilesFromContext(r.Context()).Get(upload.SlotThumbnail),
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, video, "Video updated successfully")
}

// HandleDelete removes a video and its stored files.
//
// HTTP: DELETE /api/v1/videos/{videoId}
func (h *VideoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.videos.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Video deleted successfully")
}

// HandleTogglePublish flips the published flag.
//
// HTTP: PATCH /api/v1/videos/toggle/publish/{videoId}
func (h *VideoHandler) HandleTogglePublish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		response.Error(w, err)
		return
	}

	video, err := h.videos.TogglePublish(r.Context(), currentUser(r).ID, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, video, "Publish status toggled successfully")
}

func isMultipart(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "multipart/form-data"
}
