// Package handler exposes the interaction session and verification API: it
// issues interaction tokens and drives passcode and social verification
// through to an account decision.
package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"signon/backend/internal/apperr"
	"signon/backend/internal/audit"
	"signon/backend/internal/connector"
	cdomain "signon/backend/internal/connector/domain"
	"signon/backend/internal/events"
	"signon/backend/internal/httputil"
	"signon/backend/internal/interaction"
	pdomain "signon/backend/internal/passcode/domain"
	udomain "signon/backend/internal/user/domain"
)

// Tokens issues and validates interaction tokens.
type Tokens interface {
	IssueInteraction(flow string) (token, jti string, expiresAt time.Time, err error)
	ValidateInteraction(token string) (jti, flow string, err error)
}

// PasscodeEngine drives the passcode lifecycle for a session.
type PasscodeEngine interface {
	CreateAndSend(ctx context.Context, jti string, typ pdomain.Type, to pdomain.Recipient) error
	Validate(ctx context.Context, jti string, typ pdomain.Type, to pdomain.Recipient, code string) error
}

// SocialSource resolves the enabled social connector for a target.
type SocialSource interface {
	ActiveSocial(ctx context.Context, target string) (connector.SocialExchanger, *cdomain.ConnectorConfig, error)
}

// AccountResolver maps verified identifiers onto account decisions.
type AccountResolver interface {
	Resolve(ctx context.Context, flow interaction.Flow, identifier interaction.Identifier) (*interaction.Decision, error)
	Provision(ctx context.Context, decision *interaction.Decision) (*udomain.User, error)
	RecordSignIn(ctx context.Context, userID string) error
}

// Deps carries the handler's collaborators. Audit and Producer are optional.
type Deps struct {
	Tokens   Tokens
	Engine   PasscodeEngine
	Socials  SocialSource
	Resolver AccountResolver
	Audit    audit.AuditLogger
	Producer events.Producer
}

type Handler struct {
	tokens   Tokens
	engine   PasscodeEngine
	socials  SocialSource
	resolver AccountResolver
	auditLog audit.AuditLogger
	producer events.Producer
}

func New(deps Deps) *Handler {
	return &Handler{
		tokens:   deps.Tokens,
		engine:   deps.Engine,
		socials:  deps.Socials,
		resolver: deps.Resolver,
		auditLog: deps.Audit,
		producer: deps.Producer,
	}
}

// RegisterRoutes mounts the interaction and verification endpoints on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/interaction", h.createInteraction).Methods(http.MethodPut)
	r.HandleFunc("/api/verification/passcode", h.requireSession(h.sendPasscode)).Methods(http.MethodPost)
	r.HandleFunc("/api/verification/passcode/verify", h.requireSession(h.verifyPasscode)).Methods(http.MethodPost)
	r.HandleFunc("/api/verification/social/{target}/authorization-uri", h.requireSession(h.socialAuthorizationURI)).Methods(http.MethodPost)
	r.HandleFunc("/api/verification/social/{target}/verify", h.requireSession(h.verifySocial)).Methods(http.MethodPost)
}

// session is one validated interaction: every verification call is scoped to
// its jti and flow.
type session struct {
	jti  string
	flow interaction.Flow
}

// requireSession validates the Bearer interaction token and hands the session
// to the wrapped handler.
func (h *Handler) requireSession(next func(http.ResponseWriter, *http.Request, session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			httputil.WriteError(w, apperr.New(apperr.AuthUnauthorized, nil))
			return
		}
		jti, flow, err := h.tokens.ValidateInteraction(raw)
		if err != nil {
			httputil.WriteError(w, apperr.New(apperr.AuthUnauthorized, nil))
			return
		}
		f := interaction.Flow(flow)
		if !f.Valid() {
			httputil.WriteError(w, apperr.New(apperr.AuthUnauthorized, nil))
			return
		}
		next(w, r, session{jti: jti, flow: f})
	}
}

type interactionResponse struct {
	Token     string    `json:"token"`
	Flow      string    `json:"flow"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) createInteraction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Flow string `json:"flow"`
	}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	flow := interaction.Flow(body.Flow)
	if !flow.Valid() {
		httputil.WriteError(w, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "unknown flow"}))
		return
	}
	token, _, expiresAt, err := h.tokens.IssueInteraction(string(flow))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, interactionResponse{
		Token:     token,
		Flow:      string(flow),
		ExpiresAt: expiresAt,
	})
}

type recipientBody struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *Handler) sendPasscode(w http.ResponseWriter, r *http.Request, s session) {
	var body recipientBody
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	to := pdomain.Recipient{Email: body.Email, Phone: body.Phone}
	if err := h.engine.CreateAndSend(r.Context(), s.jti, pdomain.Type(s.flow), to); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) verifyPasscode(w http.ResponseWriter, r *http.Request, s session) {
	var body struct {
		recipientBody
		Code string `json:"code"`
	}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	to := pdomain.Recipient{Email: body.Email, Phone: body.Phone}
	if err := h.engine.Validate(r.Context(), s.jti, pdomain.Type(s.flow), to, body.Code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	identifier := interaction.VerifiedEmail(body.Email)
	if body.Phone != "" {
		identifier = interaction.VerifiedPhone(body.Phone)
	}
	h.resolveAndRespond(w, r, s, identifier)
}

func (h *Handler) socialAuthorizationURI(w http.ResponseWriter, r *http.Request, s session) {
	var body struct {
		State       string `json:"state"`
		RedirectURI string `json:"redirectUri"`
	}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if body.State == "" || body.RedirectURI == "" {
		httputil.WriteError(w, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "state and redirectUri are required"}))
		return
	}
	exchanger, _, err := h.socials.ActiveSocial(r.Context(), mux.Vars(r)["target"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"redirectTo": exchanger.AuthorizationURL(body.State, body.RedirectURI),
	})
}

func (h *Handler) verifySocial(w http.ResponseWriter, r *http.Request, s session) {
	var artifact connector.ExchangeArtifact
	if err := httputil.ParseJSON(r, &artifact); err != nil {
		httputil.WriteError(w, err)
		return
	}
	target := mux.Vars(r)["target"]
	exchanger, cfg, err := h.socials.ActiveSocial(r.Context(), target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := exchanger.Exchange(r.Context(), artifact)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if h.auditLog != nil {
		h.auditLog.LogEvent(r.Context(), s.jti, "", audit.ActionSocialVerified, "social/"+target, "")
	}
	events.EmitAsync(h.producer, r.Context(), &events.Event{
		Type:        events.TypeSocialVerified,
		JTI:         s.jti,
		Flow:        string(s.flow),
		ConnectorID: cfg.ConnectorID,
	})
	h.resolveAndRespond(w, r, s, interaction.Social(cfg.ConnectorID, target, profile))
}

type userView struct {
	ID           string `json:"id"`
	PrimaryEmail string `json:"primaryEmail,omitempty"`
	PrimaryPhone string `json:"primaryPhone,omitempty"`
	Name         string `json:"name,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
}

type decisionResponse struct {
	User    userView `json:"user"`
	Created bool     `json:"created"`
}

// resolveAndRespond maps the verified identifier onto an account and renders
// the decision. New-account decisions are provisioned immediately so the
// response always names a concrete account.
func (h *Handler) resolveAndRespond(w http.ResponseWriter, r *http.Request, s session, identifier interaction.Identifier) {
	ctx := r.Context()
	decision, err := h.resolver.Resolve(ctx, s.flow, identifier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var u *udomain.User
	created := false
	if decision.NewAccount {
		u, err = h.resolver.Provision(ctx, decision)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		created = true
	} else {
		u = decision.User
		if s.flow == interaction.FlowSignIn {
			if err := h.resolver.RecordSignIn(ctx, u.ID); err != nil {
				log.Printf("interaction: record sign-in for %s: %v", u.ID, err)
			}
		}
	}

	events.EmitAsync(h.producer, ctx, &events.Event{
		Type:           events.TypeAccountResolved,
		JTI:            s.jti,
		Flow:           string(s.flow),
		IdentifierKind: string(identifier.Kind),
		UserID:         u.ID,
		Metadata:       map[string]any{"created": created},
	})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, decisionResponse{
		User: userView{
			ID:           u.ID,
			PrimaryEmail: u.PrimaryEmail,
			PrimaryPhone: u.PrimaryPhone,
			Name:         u.Name,
			Avatar:       u.Avatar,
		},
		Created: created,
	})
}
