package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"signon/backend/internal/connector"
	"signon/backend/internal/connector/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a connector repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const connectorColumns = `connector_id, type, target, platform, config, enabled, created_at, updated_at`

// GetAll returns every stored connector configuration ordered by connector id.
func (r *PostgresRepository) GetAll(ctx context.Context) ([]*domain.ConnectorConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+connectorColumns+` FROM connectors ORDER BY connector_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ConnectorConfig
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID returns the stored configuration for connectorID, or nil if none
// exists. It returns an error only for database failures, not for missing
// rows.
func (r *PostgresRepository) GetByID(ctx context.Context, connectorID string) (*domain.ConnectorConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectorColumns+` FROM connectors WHERE connector_id = $1`, connectorID)
	c, err := scanConnector(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Upsert inserts or replaces the configuration row for c.ConnectorID. The
// enabled flag is preserved on conflict; callers flip it through SetEnabled.
func (r *PostgresRepository) Upsert(ctx context.Context, c *domain.ConnectorConfig) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connectors (connector_id, type, target, platform, config, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (connector_id) DO UPDATE
		SET config = EXCLUDED.config, target = EXCLUDED.target, updated_at = EXCLUDED.updated_at`,
		c.ConnectorID, string(c.Type), c.Target, string(c.Platform), []byte(c.Config), c.Enabled, now)
	return err
}

// SetEnabled flips the enabled flag for connectorID.
func (r *PostgresRepository) SetEnabled(ctx context.Context, connectorID string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE connectors SET enabled = $2, updated_at = $3 WHERE connector_id = $1`,
		connectorID, enabled, time.Now().UTC())
	return err
}

// SetEnabledExclusive enables connectorID and disables the other connectors of
// the same type in one transaction, so at most one SMS and one email connector
// is ever active.
func (r *PostgresRepository) SetEnabledExclusive(ctx context.Context, connectorID string, typ connector.Type) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE connectors SET enabled = FALSE, updated_at = $3 WHERE type = $1 AND connector_id <> $2 AND enabled`,
		string(typ), connectorID, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE connectors SET enabled = TRUE, updated_at = $2 WHERE connector_id = $1`,
		connectorID, now); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnector(row rowScanner) (*domain.ConnectorConfig, error) {
	var c domain.ConnectorConfig
	var typ, platform string
	var config []byte
	if err := row.Scan(&c.ConnectorID, &typ, &c.Target, &platform, &config, &c.Enabled, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = connector.Type(typ)
	c.Platform = connector.Platform(platform)
	c.Config = config
	return &c, nil
}
