package handler

import (
	"net/http"

	"github.com/sakif/vidtube/internal/response"
	"github.com/sakif/vidtube/internal/service"
)

// DashboardHandler reports on the caller's own channel.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// HandleStats returns totals of videos, views, subscribers, likes and tweets.
//
// HTTP: GET /api/v1/dashboard/stats
func (h *DashboardHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), currentUser(r).ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, stats, "Channel stats fetched successfully")
}

// HandleVideos lists every video of the caller, drafts included, with like counts.
//
// HTTP: GET /api/v1/dashboard/videos
func (h *DashboardHandler) HandleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.dashboard.Videos(r.Context(), currentUser(r).ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, videos, "Channel videos fetched successfully")
}
