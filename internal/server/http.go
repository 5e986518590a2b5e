// Package server assembles the HTTP API: it wires every handler onto one
// router behind the shared middleware chain.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	connectorhandler "signon/backend/internal/connector/handler"
	devhandler "signon/backend/internal/devpasscode/handler"
	healthhandler "signon/backend/internal/health/handler"
	"signon/backend/internal/httputil"
	interactionhandler "signon/backend/internal/interaction/handler"
)

// Deps holds the handler dependencies. Nil optional fields disable the
// corresponding surface.
type Deps struct {
	// Connectors serves the connector management API.
	Connectors *connectorhandler.Handler
	// Interaction serves the interaction and verification API.
	Interaction *interactionhandler.Handler
	// Health serves /healthz. HealthPinger may be nil.
	HealthPinger healthhandler.Pinger
	// DevPasscode is the dev-only passcode reader. If nil, the dev route is
	// not mounted. Set only when dev passcode mode is enabled and not
	// production.
	DevPasscode devhandler.Reader
}

// NewRouter builds the service router with recovery, client IP, and request
// logging applied to every route.
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()

	healthhandler.New(deps.HealthPinger).RegisterRoutes(r)
	if deps.Connectors != nil {
		deps.Connectors.RegisterRoutes(r)
	}
	if deps.Interaction != nil {
		deps.Interaction.RegisterRoutes(r)
	}
	if deps.DevPasscode != nil {
		devhandler.New(deps.DevPasscode).RegisterRoutes(r)
	}

	var h http.Handler = r
	h = httputil.LoggingMiddleware(h)
	h = httputil.ClientIPMiddleware(h)
	h = httputil.RecoveryMiddleware(h)
	return h
}
