package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
)

type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

type likeState struct {
	Liked bool `json:"liked"`
}

// HandleToggle likes or unlikes a video, comment or tweet.
//
// HTTP: POST /api/v1/likes/toggle/v/{videoId}
//
//	POST /api/v1/likes/toggle/c/{commentId}
//	POST /api/v1/likes/toggle/t/{tweetId}
//
// RESPONSE: {"data": {"liked": true}, "message": "Like added", ...}
func (h *LikeHandler) HandleToggle(targetType model.TargetType, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, param)
		if err != nil {
			response.Error(w, err)
			return
		}

		target := model.Target{Type: targetType, ID: id}
		liked, err := h.likes.Toggle(r.Context(), currentUser(r).ID, target)
		if err != nil {
			response.Error(w, err)
			return
		}

		message := "Like removed"
		if liked {
			message = "Like added"
		}
		response.JSON(w, http.StatusOK, likeState{Liked: liked}, message)
	}
}

// HandleLikedVideos lists the videos the caller liked, newest like first.
//
// HTTP: GET /api/v1/likes/videos
func (h *LikeHandler) HandleLikedVideos(w http.ResponseWriter, r *http.Request) {
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	videos, err := h.likes.LikedVideos(r.Context(), currentUser(r).ID, opts)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, videos, "Liked videos fetched successfully")
}
