// Package handler exposes the dev-only passcode retrieval endpoint. Only
// mounted when dev passcode mode is enabled and the environment is not
// production.
package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"signon/backend/internal/apperr"
	"signon/backend/internal/httputil"
	"signon/backend/internal/passcode/domain"
)

const devNote = "DEV MODE ONLY"

// Reader reads recorded cleartext codes.
type Reader interface {
	Get(jti string, typ domain.Type) (string, bool)
}

type Handler struct {
	store Reader
}

func New(store Reader) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the dev passcode route on the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/dev/passcode", h.getPasscode).Methods(http.MethodGet)
}

type passcodeResponse struct {
	Code string `json:"code"`
	Note string `json:"note"`
}

func (h *Handler) getPasscode(w http.ResponseWriter, r *http.Request) {
	jti := r.URL.Query().Get("jti")
	typ := domain.Type(r.URL.Query().Get("type"))
	if jti == "" || !typ.Valid() {
		httputil.WriteError(w, apperr.New(apperr.RequestInvalidInput, map[string]any{
			"details": "jti and a valid type query parameter are required",
		}))
		return
	}
	code, ok := h.store.Get(jti, typ)
	if !ok {
		httputil.WriteError(w, apperr.New(apperr.PasscodeNotFound, nil))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, passcodeResponse{Code: code, Note: devNote})
}
