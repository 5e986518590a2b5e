package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"signon/backend/internal/apperr"
	"signon/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, primary_email, primary_phone, name, avatar, last_sign_in_at, created_at`

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the account whose primary email is email, or nil.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE primary_email = $1`, email)
}

// GetByPhone returns the account whose primary phone is phone, or nil.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE primary_phone = $1`, phone)
}

// GetBySocialIdentity returns the account bound to the provider identity, or
// nil when the identity is unbound.
func (r *PostgresRepository) GetBySocialIdentity(ctx context.Context, target, providerUserID string) (*domain.User, error) {
	return r.getOne(ctx, `
		SELECT u.id, u.primary_email, u.primary_phone, u.name, u.avatar, u.last_sign_in_at, u.created_at
		FROM users u
		JOIN user_social_identities s ON s.user_id = u.id
		WHERE s.target = $1 AND s.provider_user_id = $2`, target, providerUserID)
}

// Create persists the account. The user must have ID set. A duplicate email
// or phone maps onto the taxonomy conflict errors.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	email := sql.NullString{String: u.PrimaryEmail, Valid: u.PrimaryEmail != ""}
	phone := sql.NullString{String: u.PrimaryPhone, Valid: u.PrimaryPhone != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, primary_email, primary_phone, name, avatar, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, email, phone, u.Name, u.Avatar, u.CreatedAt)
	return mapUniqueViolation(err)
}

// BindSocialIdentity binds a provider identity to an account. A duplicate
// (target, provider user id) pair maps onto user.identity_already_in_use.
func (r *PostgresRepository) BindSocialIdentity(ctx context.Context, identity *domain.SocialIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_social_identities (user_id, target, connector_id, provider_user_id, raw_profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		identity.UserID, identity.Target, identity.ConnectorID, identity.ProviderUserID, identity.RawProfile, identity.CreatedAt)
	return mapUniqueViolation(err)
}

// UpdateLastSignIn sets the account's last sign-in timestamp.
func (r *PostgresRepository) UpdateLastSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_sign_in_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	var u domain.User
	var email, phone sql.NullString
	var lastSignIn sql.NullTime
	if err := row.Scan(&u.ID, &email, &phone, &u.Name, &u.Avatar, &lastSignIn, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.PrimaryEmail = email.String
	u.PrimaryPhone = phone.String
	if lastSignIn.Valid {
		u.LastSignInAt = &lastSignIn.Time
	}
	return &u, nil
}

const pgUniqueViolation = "23505"

// mapUniqueViolation translates a Postgres unique violation into the matching
// taxonomy conflict error. Other errors pass through unchanged.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_primary_email_key":
		return apperr.New(apperr.UserEmailAlreadyInUse, nil)
	case "users_primary_phone_key":
		return apperr.New(apperr.UserPhoneAlreadyInUse, nil)
	case "user_social_identities_target_provider_user_id_key":
		return apperr.New(apperr.UserIdentityAlreadyInUse, nil)
	}
	return err
}
