package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAssociationNotFound = errors.New("association not found")

	// ErrDuplicateAssociation signals that a write would give an external
	// identity two associations, or a user two associations for the same
	// provider.
	ErrDuplicateAssociation = errors.New("association already exists")

	ErrDuplicateEmail = errors.New("email already taken")
)
