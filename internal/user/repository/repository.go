package repository

import (
	"context"
	"time"

	"signon/backend/internal/user/domain"
)

// Repository defines persistence for accounts and their social identities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetBySocialIdentity(ctx context.Context, target, providerUserID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	BindSocialIdentity(ctx context.Context, identity *domain.SocialIdentity) error
	UpdateLastSignIn(ctx context.Context, id string, at time.Time) error
}
