package repository

import (
	"context"

	"signon/backend/internal/connector"
	"signon/backend/internal/connector/domain"
)

// Repository defines persistence for connector configurations.
type Repository interface {
	GetAll(ctx context.Context) ([]*domain.ConnectorConfig, error)
	GetByID(ctx context.Context, connectorID string) (*domain.ConnectorConfig, error)
	Upsert(ctx context.Context, c *domain.ConnectorConfig) error
	SetEnabled(ctx context.Context, connectorID string, enabled bool) error
	// SetEnabledExclusive enables connectorID and disables every other
	// connector of the same type in one transaction.
	SetEnabledExclusive(ctx context.Context, connectorID string, typ connector.Type) error
}
