package domain

import (
	"context"
	"time"
)

// UserRepository is the persistence abstraction over local accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)

	// FindActiveOrStagedByEmail looks an account up by normalized email.
	// Unlike a login lookup it returns staged accounts too, so that
	// reconciliation can claim them. Returns ErrUserNotFound on miss.
	FindActiveOrStagedByEmail(ctx context.Context, email string) (*User, error)

	// FindByCustomAttribute looks an account up by an auxiliary attribute,
	// e.g. a previously recorded external subject id. Returns
	// ErrUserNotFound on miss.
	FindByCustomAttribute(ctx context.Context, name, value string) (*User, error)

	// Create inserts a new account and assigns its ID. Returns
	// ErrDuplicateEmail when the email is already taken.
	Create(ctx context.Context, user *User) error

	Update(ctx context.Context, user *User) error
}

// AssociationRepository is the persistence abstraction over external identity
// links. Implementations must enforce two uniqueness constraints:
// (provider, subject) identifies at most one association, and a user holds at
// most one association per provider.
type AssociationRepository interface {
	// FindByProviderSubject returns the association for one external
	// identity. Returns ErrAssociationNotFound on miss.
	FindByProviderSubject(ctx context.Context, provider, subject string) (*Association, error)

	FindByUserAndProvider(ctx context.Context, userID, provider string) (*Association, error)

	// DeleteAllByUserAndProvider removes zero or more associations.
	// Idempotent: deleting nothing is not an error.
	DeleteAllByUserAndProvider(ctx context.Context, userID, provider string) error

	// Upsert inserts the association for (provider, subject) or repoints
	// and refreshes an existing one. Returns ErrDuplicateAssociation when
	// the write would break a uniqueness constraint.
	Upsert(ctx context.Context, assoc *Association) error
}

// TxRunner executes fn as one atomic unit against the store. Either every
// write fn performs commits, or none of them do.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AvatarJob asks an out-of-process fetcher to retrieve an avatar image.
type AvatarJob struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	URL              string    `json:"url"`
	OverrideGravatar bool      `json:"override_gravatar"`
	EnqueuedAt       time.Time `json:"enqueued_at"`
}

// AvatarQueue accepts avatar fetch jobs. Enqueue is fire-and-forget from the
// caller's perspective; failures must never affect reconciliation results.
type AvatarQueue interface {
	Enqueue(ctx context.Context, job AvatarJob) error
}
