package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
)

// CommentHandler serves /api/v1/comments.
//
// Videos and tweets share the list and create handlers; HandleList and
// HandleCreate take the target type and the URL parameter that carries its id:
//
//	r.Get("/{videoId}", h.HandleList(model.TargetVideo, "videoId"))
//	r.Get("/t/{tweetId}", h.HandleList(model.TargetTweet, "tweetId"))
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

// HandleList returns a page of top-level comments, oldest first.
//
// HTTP: GET /api/v1/comments/{videoId} and GET /api/v1/comments/t/{tweetId}
func (h *CommentHandler) HandleList(targetType model.TargetType, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, param)
		if err != nil {
			response.Error(w, err)
			return
		}
		opts, err := pagination(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		target := model.Target{Type: targetType, ID: id}
		comments, err := h.comments.List(r.Context(), target, currentUser(r).ID, opts)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, comments, "Comments fetched successfully")
	}
}

// HandleCreate adds a comment.
//
// HTTP: POST /api/v1/comments/{videoId} and POST /api/v1/comments/t/{tweetId}
// REQUEST BODY: {"content": "nice video"}
func (h *CommentHandler) HandleCreate(targetType model.TargetType, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, param)
		if err != nil {
			response.Error(w, err)
			return
		}
		content, err := h.decodeContent(w, r)
		if err != nil {
			response.Error(w, err)
			return
		}

		target := model.Target{Type: targetType, ID: id}
		comment, err := h.comments.Create(r.Context(), currentUser(r).ID, target, content)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, comment, "Comment added successfully")
	}
}

// HandleReplies lists the replies of a comment.
//
// HTTP: GET /api/v1/comments/c/{commentId}/replies
func (h *CommentHandler) HandleReplies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		response.Error(w, err)
		return
	}
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	replies, err := h.comments.Replies(r.Context(), currentUser(r).ID, id, opts)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, replies, "Replies fetched successfully")
}

// HandleReply answers a comment.
//
// HTTP: POST /api/v1/comments/c/{commentId}/replies
func (h *CommentHandler) HandleReply(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		response.Error(w, err)
		return
	}
	content, err := h.decodeContent(w, r)
	if err != nil {
		response.Error(w, err)
		return
	}

	reply, err := h.comments.Reply(r.Context(), currentUser(r).ID, id, content)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, reply, "Reply added successfully")
}

// HandleUpdate edits a comment. Owner only.
//
// HTTP: PATCH /api/v1/comments/c/{commentId}
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		response.Error(w, err)
		return
	}
	content, err := h.decodeContent(w, r)
	if err != nil {
		response.Error(w, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), currentUser(r).ID, id, content)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, comment, "Comment updated successfully")
}

// HandleDelete removes a comment with its replies and likes. Owner only.
//
// HTTP: DELETE /api/v1/comments/c/{commentId}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.comments.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Comment deleted successfully")
}

func (h *CommentHandler) decodeContent(w http.ResponseWriter, r *http.Request) (string, error) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", err
	}
	if err := validateStruct(req); err != nil {
		return "", err
	}
	return req.Content, nil
}
