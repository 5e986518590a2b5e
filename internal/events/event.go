// Package events emits verification lifecycle events (e.g. to Kafka) for
// downstream consumers such as fraud scoring and analytics pipelines.
package events

import (
	"context"
	"time"
)

// Event types emitted by the verification core.
const (
	TypePasscodeIssued   = "passcode.issued"
	TypePasscodeVerified = "passcode.verified"
	TypeSocialVerified   = "social.verified"
	TypeAccountResolved  = "account.resolved"
	TypeConnectorEnabled = "connector.enabled"
)

// Event is one verification lifecycle event. Identifier values are never
// included; only their kind.
type Event struct {
	Type           string         `json:"type"`
	JTI            string         `json:"jti,omitempty"`
	Flow           string         `json:"flow,omitempty"`
	IdentifierKind string         `json:"identifierKind,omitempty"`
	ConnectorID    string         `json:"connectorId,omitempty"`
	UserID         string         `json:"userId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Producer emits verification events. Callers use it best-effort: log and
// ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call
	// through EmitAsync from request handlers.
	Emit(ctx context.Context, event *Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already
	// closed.
	Close() error
}
