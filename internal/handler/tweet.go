package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
)

type TweetHandler struct {
	tweets *service.TweetService
	logger *slog.Logger
}

func NewTweetHandler(tweets *service.TweetService, logger *slog.Logger) *TweetHandler {
	return &TweetHandler{tweets: tweets, logger: logger}
}

type tweetRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// HandleList returns the newest tweets of every user.
//
// HTTP: GET /api/v1/tweets
func (h *TweetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	tweets, err := h.tweets.List(r.Context(), opts)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, tweets, "Tweets fetched successfully")
}

// HandleCreate posts a tweet.
//
// HTTP: POST /api/v1/tweets
// REQUEST BODY: {"title": "hello", "content": "first tweet"}
func (h *TweetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tweetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	tweet, err := h.tweets.Create(r.Context(), currentUser(r).ID, req.Title, req.Content)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, tweet, "Tweet created successfully")
}

// HandleListByUser returns one user's tweets.
//
// HTTP: GET /api/v1/tweets/user/{userId}
func (h *TweetHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		response.Error(w, err)
		return
	}
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	tweets, err := h.tweets.ListByUser(r.Context(), userID, opts)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, tweets, "User tweets fetched successfully")
}

// HandleUpdate edits a tweet. Owner only.
//
// HTTP: PATCH /api/v1/tweets/{tweetId}
func (h *TweetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tweetId")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req tweetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := validateStruct(req); err != nil {
		response.Error(w, err)
		return
	}

	tweet, err := h.tweets.Update(r.Context(), currentUser(r).ID, id, req.Title, req.Content)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, tweet, "Tweet updated successfully")
}

// HandleDelete removes a tweet with its comments and likes. Owner only.
//
// HTTP: DELETE /api/v1/tweets/{tweetId}
func (h *TweetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tweetId")
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.tweets.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Tweet deleted successfully")
}
