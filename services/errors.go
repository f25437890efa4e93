package services

import (
	"errors"
	"fmt"

	"go.pilab.hu/idlink/domain"
)

// ValidationError reports an identity assertion that is missing a required
// claim. No store writes have been attempted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid identity assertion: %s %s", e.Field, e.Reason)
}

// ProvisioningError wraps a persistence failure that survived the engine's
// retry budget. The store holds no partial state from the failed attempt.
type ProvisioningError struct {
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed: %v", e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// isConstraintRace reports whether err stems from a uniqueness race with a
// concurrent reconciliation of the same identity. Such failures are retried
// by reloading, not surfaced.
func isConstraintRace(err error) bool {
	return errors.Is(err, domain.ErrDuplicateAssociation) ||
		errors.Is(err, domain.ErrDuplicateEmail)
}
