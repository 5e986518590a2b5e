// Package domain holds the persisted account models.
package domain

import "time"

// User is one account. PrimaryEmail and PrimaryPhone are each bound to at
// most one account; empty means unbound.
type User struct {
	ID           string
	PrimaryEmail string
	PrimaryPhone string
	Name         string
	Avatar       string
	LastSignInAt *time.Time
	CreatedAt    time.Time
}

// SocialIdentity binds a provider identity to an account. The pair
// (Target, ProviderUserID) is unique across accounts.
type SocialIdentity struct {
	UserID         string
	Target         string
	ConnectorID    string
	ProviderUserID string
	RawProfile     []byte
	CreatedAt      time.Time
}
