package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/response"
)

// Pinger is satisfied by *sqldb.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the server can reach its database.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HandleHealthcheck pings the database.
//
// HTTP: GET /api/v1/healthcheck
func (h *HealthHandler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("healthcheck: database unreachable", slog.String("error", err.Error()))
		response.Fail(w, http.StatusServiceUnavailable, "Database unreachable", nil)
		return
	}
	response.JSON(w, http.StatusOK, healthStatus{Status: "ok", Database: "ok"}, "OK")
}
