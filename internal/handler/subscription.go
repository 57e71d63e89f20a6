package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
)

type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
	logger        *slog.Logger
}

func NewSubscriptionHandler(subscriptions *service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: logger}
}

type subscriptionState struct {
	Subscribed bool `json:"subscribed"`
}

// HandleToggle subscribes the caller to a channel, or unsubscribes.
//
// HTTP: POST /api/v1/subscriptions/c/{channelId}
func (h *SubscriptionHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		response.Error(w, err)
		return
	}

	subscribed, err := h.subscriptions.Toggle(r.Context(), currentUser(r).ID, channelID)
	if err != nil {
		response.Error(w, err)
		return
	}

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}
	response.JSON(w, http.StatusOK, subscriptionState{Subscribed: subscribed}, message)
}

// HandleSubscribers lists the users subscribed to a channel.
//
// HTTP: GET /api/v1/subscriptions/c/{channelId}
func (h *SubscriptionHandler) HandleSubscribers(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		response.Error(w, err)
		return
	}
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	users, err := h.subscriptions.Subscribers(r.Context(), channelID, opts)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, users, "Subscribers fetched successfully")
}

// HandleChannels lists the channels a user is subscribed to.
//
// HTTP: GET /api/v1/subscriptions/u/{subscriberId}
func (h *SubscriptionHandler) HandleChannels(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		response.Error(w, err)
		return
	}
	opts, err := pagination(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	channels, err := h.subscriptions.Channels(r.Context(), subscriberID, opts)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, channels, "Subscribed channels fetched successfully")
}
