package interaction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"signon/backend/internal/apperr"
	"signon/backend/internal/user/domain"
)

// Accounts is the persistence surface the resolver needs.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetBySocialIdentity(ctx context.Context, target, providerUserID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	BindSocialIdentity(ctx context.Context, identity *domain.SocialIdentity) error
	UpdateLastSignIn(ctx context.Context, id string, at time.Time) error
}

// Decision is the resolver's verdict for one identifier: either an existing
// account, or permission to create one carrying the identifier.
type Decision struct {
	// User is the matched account; nil when NewAccount is set.
	User *domain.User
	// NewAccount means no account carries the identifier and the flow allows
	// creating one. The identifier to seed it with is retained.
	NewAccount bool
	Identifier Identifier
}

// Resolver maps verified identifiers onto accounts according to the flow's
// creation rules.
type Resolver struct {
	accounts Accounts
	now      func() time.Time
}

func NewResolver(accounts Accounts) *Resolver {
	return &Resolver{
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve maps identifier onto an account decision. Only the Register flow
// may create accounts from email and phone identifiers; an unbound social
// identity yields a new-account decision in any flow, since the provider
// already vouches for the person. Conflicts surface as 409 taxonomy errors.
func (r *Resolver) Resolve(ctx context.Context, flow Flow, identifier Identifier) (*Decision, error) {
	if !flow.Valid() {
		return nil, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "unknown flow"})
	}
	switch identifier.Kind {
	case KindAccountID:
		u, err := r.accounts.GetByID(ctx, identifier.AccountID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apperr.New(apperr.UserNotExist, map[string]any{"identifier": identifier.label()})
		}
		return &Decision{User: u, Identifier: identifier}, nil

	case KindVerifiedEmail:
		u, err := r.accounts.GetByEmail(ctx, identifier.Email)
		if err != nil {
			return nil, err
		}
		return r.decide(flow, identifier, u, apperr.UserEmailAlreadyInUse)

	case KindVerifiedPhone:
		u, err := r.accounts.GetByPhone(ctx, identifier.Phone)
		if err != nil {
			return nil, err
		}
		return r.decide(flow, identifier, u, apperr.UserPhoneAlreadyInUse)

	case KindSocial:
		if identifier.Social == nil || identifier.Social.Profile == nil {
			return nil, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "social identifier missing profile"})
		}
		u, err := r.accounts.GetBySocialIdentity(ctx, identifier.Social.Target, identifier.Social.Profile.ID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			if flow == FlowRegister {
				return nil, apperr.New(apperr.UserIdentityAlreadyInUse, nil)
			}
			return &Decision{User: u, Identifier: identifier}, nil
		}
		return &Decision{NewAccount: true, Identifier: identifier}, nil
	}
	return nil, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "unknown identifier kind"})
}

// decide applies the shared email/phone rules: existing account signs in,
// a missing account registers only in the Register flow, and registering an
// already-bound identifier conflicts.
func (r *Resolver) decide(flow Flow, identifier Identifier, u *domain.User, conflictCode string) (*Decision, error) {
	if u != nil {
		if flow == FlowRegister {
			return nil, apperr.New(conflictCode, nil)
		}
		return &Decision{User: u, Identifier: identifier}, nil
	}
	if flow != FlowRegister {
		return nil, apperr.New(apperr.UserNotExist, map[string]any{"identifier": identifier.label()})
	}
	return &Decision{NewAccount: true, Identifier: identifier}, nil
}

// Provision materializes a new-account decision: it creates the account and
// binds the identifier it was resolved from. Storage-level uniqueness races
// surface as the same 409 errors Resolve would have returned.
func (r *Resolver) Provision(ctx context.Context, decision *Decision) (*domain.User, error) {
	if decision == nil || !decision.NewAccount {
		return nil, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "decision does not create an account"})
	}
	u := &domain.User{
		ID:        uuid.New().String(),
		CreatedAt: r.now(),
	}
	identifier := decision.Identifier
	switch identifier.Kind {
	case KindVerifiedEmail:
		u.PrimaryEmail = identifier.Email
	case KindVerifiedPhone:
		u.PrimaryPhone = identifier.Phone
	case KindSocial:
		profile := identifier.Social.Profile
		u.Name = profile.Name
		u.Avatar = profile.Avatar
	default:
		return nil, apperr.New(apperr.RequestInvalidInput, map[string]any{"details": "identifier cannot seed an account"})
	}
	if err := r.accounts.Create(ctx, u); err != nil {
		return nil, err
	}
	if identifier.Kind == KindSocial {
		raw, _ := json.Marshal(identifier.Social.Profile)
		err := r.accounts.BindSocialIdentity(ctx, &domain.SocialIdentity{
			UserID:         u.ID,
			Target:         identifier.Social.Target,
			ConnectorID:    identifier.Social.ConnectorID,
			ProviderUserID: identifier.Social.Profile.ID,
			RawProfile:     raw,
			CreatedAt:      r.now(),
		})
		if err != nil {
			return nil, err
		}
	}
	return u, nil
}

// RecordSignIn stamps the account's last sign-in time. Best-effort callers
// may ignore the error.
func (r *Resolver) RecordSignIn(ctx context.Context, userID string) error {
	return r.accounts.UpdateLastSignIn(ctx, userID, r.now())
}
