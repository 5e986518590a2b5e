package repository

import (
	"context"
	"database/sql"
	"errors"

	"signon/backend/internal/passcode/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a passcode repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the passcode. The passcode must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Passcode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO passcodes (id, jti, type, email, phone, code_hash, try_count, consumed, superseded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.JTI, string(p.Type), p.Email, p.Phone, p.CodeHash, p.TryCount, p.Consumed, p.Superseded, p.CreatedAt)
	return err
}

// GetCurrent returns the latest live passcode for the session and flow type,
// or nil if none exists. Consumed and superseded records never qualify. It
// returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetCurrent(ctx context.Context, jti string, typ domain.Type) (*domain.Passcode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, jti, type, email, phone, code_hash, try_count, consumed, superseded, created_at
		FROM passcodes
		WHERE jti = $1 AND type = $2 AND NOT consumed AND NOT superseded
		ORDER BY created_at DESC
		LIMIT 1`, jti, string(typ))
	var p domain.Passcode
	var t string
	if err := row.Scan(&p.ID, &p.JTI, &t, &p.Email, &p.Phone, &p.CodeHash, &p.TryCount, &p.Consumed, &p.Superseded, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Type = domain.Type(t)
	return &p, nil
}

// IncrementTryCount bumps the try count while it is still below max. The
// WHERE clause makes concurrent failed attempts serialize in the database, so
// the count can never pass max.
func (r *PostgresRepository) IncrementTryCount(ctx context.Context, id string, max int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE passcodes SET try_count = try_count + 1
		WHERE id = $1 AND NOT consumed AND NOT superseded AND try_count < $2`, id, max)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Consume marks the passcode consumed while it is unconsumed and below max
// tries. Returns false when another request consumed or exhausted it first.
func (r *PostgresRepository) Consume(ctx context.Context, id string, max int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE passcodes SET consumed = TRUE
		WHERE id = $1 AND NOT consumed AND NOT superseded AND try_count < $2`, id, max)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SupersedeByJTIAndType marks every live passcode for the session and flow
// type superseded. The rows stay in the table as an audit trail but can never
// verify again.
func (r *PostgresRepository) SupersedeByJTIAndType(ctx context.Context, jti string, typ domain.Type) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE passcodes SET superseded = TRUE
		WHERE jti = $1 AND type = $2 AND NOT superseded`, jti, string(typ))
	return err
}
