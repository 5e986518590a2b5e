// Package connector defines the uniform capability surface implemented by
// every third-party provider family (SMS, email, social) and the static table
// of known implementations. Connectors only perform network I/O with their
// provider; they never touch registry or storage state.
package connector

import (
	"context"
	"encoding/json"
)

// Type is the provider family of a connector.
type Type string

const (
	TypeSMS    Type = "sms"
	TypeEmail  Type = "email"
	TypeSocial Type = "social"
)

// Platform distinguishes social connectors that serve the same identity
// provider on different client platforms.
type Platform string

const (
	PlatformUniversal Platform = "universal"
	PlatformWeb       Platform = "web"
	PlatformNative    Platform = "native"
)

// UsageType is the purpose a passcode message is sent for. SMS and email
// connector configs must carry a template per required usage type.
type UsageType string

const (
	UsageSignIn         UsageType = "SignIn"
	UsageRegister       UsageType = "Register"
	UsageForgotPassword UsageType = "ForgotPassword"
	UsageTest           UsageType = "Test"
)

// Metadata describes a connector implementation. It is fixed per
// implementation and immutable through the management surface.
type Metadata struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	// Target is the default identity-provider discriminator for social
	// connectors; empty for SMS and email.
	Target   string   `json:"target,omitempty"`
	Platform Platform `json:"platform,omitempty"`
}

// SocialProfile is the normalized identity a social connector returns after a
// successful exchange.
type SocialProfile struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// ExchangeArtifact carries the provider-specific credential handed back by the
// authorization flow. Which fields are set depends on the provider.
type ExchangeArtifact struct {
	Code        string `json:"code,omitempty"`
	RedirectURI string `json:"redirectUri,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Sender delivers a passcode to an identifier. Implementations report
// delivery failures; they never swallow them.
type Sender interface {
	Send(ctx context.Context, to string, usage UsageType, code string) error
}

// SocialExchanger trades an authorization artifact for a normalized profile.
type SocialExchanger interface {
	// AuthorizationURL builds the provider URL the end user is redirected to.
	AuthorizationURL(state, redirectURI string) string
	Exchange(ctx context.Context, artifact ExchangeArtifact) (*SocialProfile, error)
}

// ValidateFunc performs structural and semantic validation of a raw config.
type ValidateFunc func(raw json.RawMessage) error
