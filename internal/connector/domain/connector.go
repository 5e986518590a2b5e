// Package domain holds the persisted connector configuration model.
package domain

import (
	"encoding/json"
	"time"

	"signon/backend/internal/connector"
)

// ConnectorConfig is one stored configuration row. ConnectorID references the
// static implementation table; Type, Target, and Platform are denormalized
// from the implementation at write time so uniqueness rules can be enforced
// in storage.
type ConnectorConfig struct {
	ConnectorID string
	Type        connector.Type
	Target      string
	Platform    connector.Platform
	Config      json.RawMessage
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
