// Package domain holds the persisted audit log model.
package domain

import "time"

// AuditLog is one recorded verification action (session-scoped, optional
// user).
type AuditLog struct {
	ID        string
	JTI       string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
