// Package service implements the passcode engine: issuing codes, dispatching
// them through the active connector, and validating submissions against
// expiry and attempt limits.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"signon/backend/internal/apperr"
	"signon/backend/internal/audit"
	"signon/backend/internal/connector"
	"signon/backend/internal/events"
	"signon/backend/internal/passcode"
	"signon/backend/internal/passcode/domain"
)

// Default lifecycle limits, overridable through Config.
const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxTry      = 5
	DefaultSendTimeout = 15 * time.Second
)

// Store is the persistence surface the engine needs.
type Store interface {
	Create(ctx context.Context, p *domain.Passcode) error
	GetCurrent(ctx context.Context, jti string, typ domain.Type) (*domain.Passcode, error)
	IncrementTryCount(ctx context.Context, id string, max int) (bool, error)
	Consume(ctx context.Context, id string, max int) (bool, error)
	SupersedeByJTIAndType(ctx context.Context, jti string, typ domain.Type) error
}

// ConnectorSource resolves the active sender for a connector type.
type ConnectorSource interface {
	ActiveSender(ctx context.Context, typ connector.Type) (connector.Sender, error)
}

// DevSink receives cleartext codes in development environments so flows can
// be driven without a real provider. Nil in production.
type DevSink interface {
	Record(jti string, typ domain.Type, code string)
}

// Config bounds the passcode lifecycle. Zero values fall back to the
// defaults.
type Config struct {
	TTL         time.Duration
	MaxTry      int
	SendTimeout time.Duration
}

// Deps carries the engine's collaborators. Store and Connectors are required;
// the rest are optional and best-effort.
type Deps struct {
	Store      Store
	Connectors ConnectorSource
	Audit      audit.AuditLogger
	Producer   events.Producer
	Dev        DevSink
}

type Engine struct {
	store      Store
	connectors ConnectorSource
	auditLog   audit.AuditLogger
	producer   events.Producer
	dev        DevSink
	cfg        Config
	now        func() time.Time
}

func NewEngine(deps Deps, cfg Config) *Engine {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxTry <= 0 {
		cfg.MaxTry = DefaultMaxTry
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Engine{
		store:      deps.Store,
		connectors: deps.Connectors,
		auditLog:   deps.Audit,
		producer:   deps.Producer,
		dev:        deps.Dev,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateAndSend issues a fresh passcode for the session and flow type and
// dispatches it to the recipient through the active connector. Any earlier
// passcode for the same session and flow is marked superseded first, so only
// the latest code can verify; superseded records stay stored.
func (e *Engine) CreateAndSend(ctx context.Context, jti string, typ domain.Type, to domain.Recipient) error {
	if !typ.Valid() {
		return apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "unknown flow type"})
	}
	if to.Email == "" && to.Phone == "" {
		return apperr.New(apperr.PasscodePhoneEmailEmpty, nil)
	}
	if to.Email != "" && to.Phone != "" {
		return apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "provide either email or phone, not both"})
	}

	connectorType := connector.TypeEmail
	address := to.Email
	if to.Phone != "" {
		connectorType = connector.TypeSMS
		address = to.Phone
	}
	sender, err := e.connectors.ActiveSender(ctx, connectorType)
	if err != nil {
		return err
	}

	code, err := passcode.Generate()
	if err != nil {
		return err
	}
	if err := e.store.SupersedeByJTIAndType(ctx, jti, typ); err != nil {
		return err
	}
	p := &domain.Passcode{
		ID:        uuid.New().String(),
		JTI:       jti,
		Type:      typ,
		Email:     to.Email,
		Phone:     to.Phone,
		CodeHash:  passcode.Hash(code),
		CreatedAt: e.now(),
	}
	if err := e.store.Create(ctx, p); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
	defer cancel()
	if err := sender.Send(sendCtx, address, connector.UsageType(typ), code); err != nil {
		if apperr.From(err).Code != apperr.RequestGeneral {
			return err
		}
		return apperr.New(apperr.ConnectorGeneral, map[string]any{"errorDescription": err.Error()})
	}

	if e.dev != nil {
		e.dev.Record(jti, typ, code)
	}
	if e.auditLog != nil {
		e.auditLog.LogEvent(ctx, jti, "", audit.ActionPasscodeSent, "passcode/"+string(typ), "")
	}
	events.EmitAsync(e.producer, ctx, &events.Event{
		Type:           events.TypePasscodeIssued,
		JTI:            jti,
		Flow:           string(typ),
		IdentifierKind: string(connectorType),
	})
	return nil
}

// Validate checks a submitted code against the current passcode for the
// session and flow type. A wrong code burns one attempt; a recipient mismatch
// does not. On success the passcode is consumed and can never verify again.
func (e *Engine) Validate(ctx context.Context, jti string, typ domain.Type, to domain.Recipient, code string) error {
	if !typ.Valid() {
		return apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "unknown flow type"})
	}
	if to.Email == "" && to.Phone == "" {
		return apperr.New(apperr.PasscodePhoneEmailEmpty, nil)
	}
	cur, err := e.store.GetCurrent(ctx, jti, typ)
	if err != nil {
		return err
	}
	if cur == nil {
		return apperr.New(apperr.PasscodeNotFound, nil)
	}
	if e.now().Sub(cur.CreatedAt) > e.cfg.TTL {
		return apperr.New(apperr.PasscodeExpired, nil)
	}
	// Attempt limit is checked before the code so an exhausted passcode never
	// reveals whether a guess was right.
	if cur.TryCount >= e.cfg.MaxTry {
		return apperr.New(apperr.PasscodeExceedMaxTry, nil)
	}
	if cur.Phone != "" && to.Phone != cur.Phone {
		return apperr.New(apperr.PasscodePhoneMismatch, nil)
	}
	if cur.Email != "" && to.Email != cur.Email {
		return apperr.New(apperr.PasscodeEmailMismatch, nil)
	}

	if !passcode.Equal(code, cur.CodeHash) {
		ok, err := e.store.IncrementTryCount(ctx, cur.ID, e.cfg.MaxTry)
		if err != nil {
			return err
		}
		if e.auditLog != nil {
			e.auditLog.LogEvent(ctx, jti, "", audit.ActionPasscodeRejected, "passcode/"+string(typ), "")
		}
		if !ok {
			return apperr.New(apperr.PasscodeExceedMaxTry, nil)
		}
		return apperr.New(apperr.PasscodeCodeMismatch, nil)
	}

	ok, err := e.store.Consume(ctx, cur.ID, e.cfg.MaxTry)
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race: either another request consumed it or concurrent
		// failures exhausted the attempts.
		cur, err = e.store.GetCurrent(ctx, jti, typ)
		if err != nil {
			return err
		}
		if cur == nil {
			return apperr.New(apperr.PasscodeNotFound, nil)
		}
		return apperr.New(apperr.PasscodeExceedMaxTry, nil)
	}

	if e.auditLog != nil {
		e.auditLog.LogEvent(ctx, jti, "", audit.ActionPasscodeVerified, "passcode/"+string(typ), "")
	}
	events.EmitAsync(e.producer, ctx, &events.Event{
		Type: events.TypePasscodeVerified,
		JTI:  jti,
		Flow: string(typ),
	})
	return nil
}
