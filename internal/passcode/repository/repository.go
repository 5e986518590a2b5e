package repository

import (
	"context"

	"signon/backend/internal/passcode/domain"
)

// Repository defines persistence for issued passcodes.
type Repository interface {
	Create(ctx context.Context, p *domain.Passcode) error
	// GetCurrent returns the latest live passcode for the session and flow
	// type, or nil when none exists. Consumed and superseded records never
	// qualify.
	GetCurrent(ctx context.Context, jti string, typ domain.Type) (*domain.Passcode, error)
	// IncrementTryCount atomically bumps the try count while it is below max.
	// Returns false when the passcode is already consumed or out of tries.
	IncrementTryCount(ctx context.Context, id string, max int) (bool, error)
	// Consume atomically marks the passcode consumed while it is unconsumed
	// and below max tries. Returns false when it lost that race.
	Consume(ctx context.Context, id string, max int) (bool, error)
	// SupersedeByJTIAndType marks every live passcode for the session and
	// flow type superseded. Records are never deleted; superseded rows remain
	// as an audit trail.
	SupersedeByJTIAndType(ctx context.Context, jti string, typ domain.Type) error
}
