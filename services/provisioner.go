package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/idlink/domain"
	"go.pilab.hu/idlink/internal/metrics"
)

// Policy gates the optional parts of reconciliation. The flags come from
// configuration and stay fixed for the lifetime of the engine.
type Policy struct {
	// EmailMatchEnabled allows an unlinked identity to claim an existing
	// account through its email address.
	EmailMatchEnabled bool
	// RequireVerifiedEmail restricts email matching to assertions whose
	// provider vouched for the address.
	RequireVerifiedEmail bool
	// AvatarOverrideAllowed lets a claim picture replace an avatar the
	// user already set themselves.
	AvatarOverrideAllowed bool
}

// Provisioner is the identity reconciliation engine. Given one trusted claim
// set it resolves exactly one local account, creating, migrating or updating
// associations as needed. It holds no mutable state and is safe for
// concurrent use; correctness under races rests on the store's uniqueness
// constraints plus one bounded reload-and-redo retry.
type Provisioner struct {
	users   domain.UserRepository
	assocs  domain.AssociationRepository
	tx      domain.TxRunner
	avatars domain.AvatarQueue
	hasher  PasswordHasher
	policy  Policy
	now     func() time.Time
}

// NewProvisioner creates a new Provisioner. avatars and hasher may be nil;
// the corresponding behaviors are then skipped.
func NewProvisioner(
	users domain.UserRepository,
	assocs domain.AssociationRepository,
	tx domain.TxRunner,
	avatars domain.AvatarQueue,
	hasher PasswordHasher,
	policy Policy,
) *Provisioner {
	return &Provisioner{
		users:   users,
		assocs:  assocs,
		tx:      tx,
		avatars: avatars,
		hasher:  hasher,
		policy:  policy,
		now:     time.Now,
	}
}

// Provision reconciles one identity assertion against the directory and
// returns the resolved account. The returned user is never staged. All store
// writes of a call commit as one atomic unit; the avatar fetch enqueue is a
// best-effort side effect performed after commit.
func (p *Provisioner) Provision(ctx context.Context, claims domain.IdentityClaims) (*domain.User, error) {
	if err := p.validate(claims); err != nil {
		return nil, err
	}
	claims.Email = domain.NormalizeEmail(claims.Email)

	user, outcome, err := p.reconcile(ctx, claims)
	if err != nil && isConstraintRace(err) {
		// A concurrent call created the association or account first.
		// Reload and redo once: the exact-match path will now find it.
		log.Warn().Err(err).
			Str("provider", claims.Provider).
			Str("subject", claims.Subject).
			Msg("Lost provisioning race, reloading")
		user, outcome, err = p.reconcile(ctx, claims)
	}
	if err != nil {
		metrics.IncProvisionFailed()
		return nil, &ProvisioningError{Err: err}
	}

	p.maybeEnqueueAvatar(ctx, user, claims)

	metrics.IncProvisionResolved(string(outcome))
	log.Info().
		Str("user_id", user.ID).
		Str("provider", claims.Provider).
		Str("outcome", string(outcome)).
		Msg("Identity reconciled")
	return user, nil
}

func (p *Provisioner) validate(claims domain.IdentityClaims) error {
	if strings.TrimSpace(claims.Provider) == "" {
		return &ValidationError{Field: "provider", Reason: "is required"}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return &ValidationError{Field: "subject", Reason: "is required"}
	}
	if p.policy.EmailMatchEnabled && domain.NormalizeEmail(claims.Email) == "" {
		return &ValidationError{Field: "email", Reason: "is required when email matching is enabled"}
	}
	return nil
}

// reconcile runs the lookup ladder and the unconditional update step as one
// transaction. It returns how the user was resolved alongside the user.
func (p *Provisioner) reconcile(ctx context.Context, claims domain.IdentityClaims) (*domain.User, domain.LinkProvenance, error) {
	var (
		resolved *domain.User
		outcome  domain.LinkProvenance
	)
	err := p.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := p.now().UTC()

		user, existing, provenance, err := p.resolveUser(ctx, claims)
		if err != nil {
			return err
		}

		if err := p.applyAccountUpdates(ctx, user, claims, now); err != nil {
			return err
		}

		// The association is rewritten on every path so its metadata and
		// last-used timestamp stay fresh. The provenance recorded at link
		// time is kept on refreshes.
		linkedAs := provenance
		if existing != nil && existing.Extra.Provenance != "" {
			linkedAs = existing.Extra.Provenance
		}
		info, creds, extra := BuildAssociationMetadata(claims, linkedAs)
		if err := p.assocs.Upsert(ctx, &domain.Association{
			Provider:    claims.Provider,
			Subject:     claims.Subject,
			UserID:      user.ID,
			Info:        info,
			Credentials: creds,
			Extra:       extra,
			LastUsedAt:  now,
		}); err != nil {
			return err
		}

		resolved, outcome = user, provenance
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return resolved, outcome, nil
}

// resolveUser walks the lookup ladder: exact external-identity match first,
// then (policy permitting) email match, then the external-subject custom
// attribute, and finally account creation. An exact match always wins; an
// identity that is already linked must never be re-matched to a different
// account by email coincidence.
func (p *Provisioner) resolveUser(ctx context.Context, claims domain.IdentityClaims) (*domain.User, *domain.Association, domain.LinkProvenance, error) {
	assoc, err := p.assocs.FindByProviderSubject(ctx, claims.Provider, claims.Subject)
	switch {
	case err == nil:
		user, err := p.users.GetByID(ctx, assoc.UserID)
		if err != nil {
			return nil, nil, "", err
		}
		return user, assoc, domain.ProvenanceSubjectMatch, nil
	case !errors.Is(err, domain.ErrAssociationNotFound):
		return nil, nil, "", err
	}

	user, provenance, err := p.matchExisting(ctx, claims)
	if err != nil {
		return nil, nil, "", err
	}
	if user != nil {
		// Migration: the same user re-links under a new external
		// identity. Any previous association for this provider has to go
		// before the fresh one is written, or the write fails.
		if err := p.assocs.DeleteAllByUserAndProvider(ctx, user.ID, claims.Provider); err != nil {
			return nil, nil, "", err
		}
		return user, nil, provenance, nil
	}

	user, err = p.createUser(ctx, claims)
	if err != nil {
		return nil, nil, "", err
	}
	return user, nil, domain.ProvenanceNewUser, nil
}

// matchExisting looks for an account that should own this identity even
// though no association exists. Returns (nil, "", nil) when nothing matches.
func (p *Provisioner) matchExisting(ctx context.Context, claims domain.IdentityClaims) (*domain.User, domain.LinkProvenance, error) {
	if p.policy.EmailMatchEnabled && (claims.EmailVerified || !p.policy.RequireVerifiedEmail) {
		user, err := p.users.FindActiveOrStagedByEmail(ctx, claims.Email)
		switch {
		case err == nil:
			return user, domain.ProvenanceEmailMatch, nil
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, "", err
		}
	}

	// Fallback for accounts whose association row was lost or never
	// created, e.g. users provisioned through a different channel that
	// recorded the external subject as a custom attribute.
	user, err := p.users.FindByCustomAttribute(ctx, domain.AttrExternalSubject, claims.Subject)
	switch {
	case err == nil:
		return user, domain.ProvenanceAttributeMatch, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, "", err
	}
	return nil, "", nil
}

// applyAccountUpdates runs on every path: staged conversion, display name
// refresh and the fill-only profile merge. A staged account must be active
// before it is handed back to the caller.
func (p *Provisioner) applyAccountUpdates(ctx context.Context, user *domain.User, claims domain.IdentityClaims, now time.Time) error {
	changed := false

	if user.Staged() {
		user.Status = domain.UserStatusActive
		changed = true
		metrics.IncStagedConverted()
	}

	if name := strings.TrimSpace(claims.Name); name != "" && name != user.DisplayName {
		user.DisplayName = name
		changed = true
	}

	if merged, ok := MergeProfile(user.Profile, claims); ok {
		user.Profile = merged
		changed = true
	}

	if !changed {
		return nil
	}
	user.UpdatedAt = now
	return p.users.Update(ctx, user)
}

func (p *Provisioner) createUser(ctx context.Context, claims domain.IdentityClaims) (*domain.User, error) {
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		if at := strings.IndexByte(claims.Email, '@'); at > 0 {
			name = claims.Email[:at]
		}
	}

	user := &domain.User{
		Email:       claims.Email,
		DisplayName: name,
		Status:      domain.UserStatusActive,
		CustomAttributes: map[string]string{
			domain.AttrExternalSubject: claims.Subject,
		},
	}
	if p.hasher != nil {
		// Random placeholder credential: the account is usable through
		// its external identity only until the owner sets a password.
		hash, err := p.hasher.Hash(uuid.NewString())
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (p *Provisioner) maybeEnqueueAvatar(ctx context.Context, user *domain.User, claims domain.IdentityClaims) {
	if p.avatars == nil {
		return
	}
	if !ShouldEnqueueAvatar(user, claims, p.policy.AvatarOverrideAllowed) {
		return
	}
	job := domain.AvatarJob{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		URL:              claims.Picture,
		OverrideGravatar: p.policy.AvatarOverrideAllowed,
		EnqueuedAt:       p.now().UTC(),
	}
	if err := p.avatars.Enqueue(ctx, job); err != nil {
		// Best-effort side effect: reconciliation already committed.
		log.Warn().Err(err).
			Str("user_id", user.ID).
			Str("url", claims.Picture).
			Msg("Failed to enqueue avatar fetch")
		return
	}
	metrics.IncAvatarEnqueued()
}
