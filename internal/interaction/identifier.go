// Package interaction resolves verified identifiers onto accounts and drives
// the sign-in, registration, and recovery flows.
package interaction

import (
	"signon/backend/internal/connector"
)

// Flow is the end-user journey an interaction serves.
type Flow string

const (
	FlowSignIn         Flow = "SignIn"
	FlowRegister       Flow = "Register"
	FlowForgotPassword Flow = "ForgotPassword"
)

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	switch f {
	case FlowSignIn, FlowRegister, FlowForgotPassword:
		return true
	}
	return false
}

// IdentifierKind discriminates the Identifier union.
type IdentifierKind string

const (
	KindAccountID     IdentifierKind = "accountId"
	KindVerifiedEmail IdentifierKind = "verifiedEmail"
	KindVerifiedPhone IdentifierKind = "verifiedPhone"
	KindSocial        IdentifierKind = "social"
)

// SocialIdentifier is a provider identity proven by a connector exchange.
type SocialIdentifier struct {
	ConnectorID string
	Target      string
	Profile     *connector.SocialProfile
}

// Identifier is one proven claim about who the end user is. Exactly the
// fields matching Kind are set. Email and phone identifiers are only
// constructed after passcode verification; raw addresses never reach the
// resolver.
type Identifier struct {
	Kind      IdentifierKind
	AccountID string
	Email     string
	Phone     string
	Social    *SocialIdentifier
}

// AccountID returns an identifier for a known account id.
func AccountID(id string) Identifier {
	return Identifier{Kind: KindAccountID, AccountID: id}
}

// VerifiedEmail returns an identifier for a passcode-verified email address.
func VerifiedEmail(email string) Identifier {
	return Identifier{Kind: KindVerifiedEmail, Email: email}
}

// VerifiedPhone returns an identifier for a passcode-verified phone number.
func VerifiedPhone(phone string) Identifier {
	return Identifier{Kind: KindVerifiedPhone, Phone: phone}
}

// Social returns an identifier for a connector-verified provider identity.
func Social(connectorID, target string, profile *connector.SocialProfile) Identifier {
	return Identifier{Kind: KindSocial, Social: &SocialIdentifier{
		ConnectorID: connectorID,
		Target:      target,
		Profile:     profile,
	}}
}

// label renders the identifier for client-facing not-found messages without
// leaking which kinds exist in the system.
func (i Identifier) label() string {
	switch i.Kind {
	case KindAccountID:
		return "id " + i.AccountID
	case KindVerifiedEmail:
		return "email " + i.Email
	case KindVerifiedPhone:
		return "phone " + i.Phone
	case KindSocial:
		return "social identity"
	}
	return "identifier"
}
