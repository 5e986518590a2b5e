// Package handler exposes liveness and readiness for load balancers and CI.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"signon/backend/internal/httputil"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db Pinger
}

// New returns a health handler. db may be nil, in which case readiness only
// reports the process as up.
func New(db Pinger) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes mounts the health endpoint on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
