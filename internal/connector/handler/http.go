// Package handler exposes the connector management API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"signon/backend/internal/apperr"
	"signon/backend/internal/audit"
	"signon/backend/internal/connector/service"
	"signon/backend/internal/events"
	"signon/backend/internal/httputil"
)

type Handler struct {
	registry *service.Registry
	auditLog audit.AuditLogger
	producer events.Producer
}

// New returns a connector management handler. auditLog and producer are
// optional.
func New(registry *service.Registry, auditLog audit.AuditLogger, producer events.Producer) *Handler {
	return &Handler{registry: registry, auditLog: auditLog, producer: producer}
}

// RegisterRoutes mounts the management endpoints on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/connectors", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/connectors/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/connectors/{id}", h.patchConfig).Methods(http.MethodPatch)
	r.HandleFunc("/api/connectors/{id}/enabled", h.patchEnabled).Methods(http.MethodPatch)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	views, err := h.registry.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) patchConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Config json.RawMessage `json:"config"`
	}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(body.Config) == 0 {
		httputil.WriteError(w, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "config is required"}))
		return
	}
	id := mux.Vars(r)["id"]
	view, err := h.registry.UpsertConfig(r.Context(), id, body.Config)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.auditLog != nil {
		h.auditLog.LogEvent(r.Context(), "", "", audit.ActionConnectorConfigSet, "connector/"+id, "")
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) patchEnabled(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if body.Enabled == nil {
		httputil.WriteError(w, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "enabled is required"}))
		return
	}
	id := mux.Vars(r)["id"]
	view, err := h.registry.SetEnabled(r.Context(), id, *body.Enabled)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.auditLog != nil {
		h.auditLog.LogEvent(r.Context(), "", "", audit.ActionConnectorEnabled, "connector/"+id, strconv.FormatBool(*body.Enabled))
	}
	events.EmitAsync(h.producer, r.Context(), &events.Event{
		Type:        events.TypeConnectorEnabled,
		ConnectorID: id,
		Metadata:    map[string]any{"enabled": *body.Enabled},
	})
	httputil.WriteJSON(w, http.StatusOK, view)
}
