package services

import (
	"strings"

	"go.pilab.hu/idlink/domain"
)

// Merge policies are pure: they decide what should be written given current
// stored values and incoming claims, and never touch the store themselves.

// MergeProfile fills blank profile fields from claims. Fields a user already
// filled in are left untouched. The second return value reports whether
// anything changed.
func MergeProfile(current domain.Profile, claims domain.IdentityClaims) (domain.Profile, bool) {
	changed := false
	if isBlank(current.Bio) && !isBlank(claims.Bio) {
		current.Bio = strings.TrimSpace(claims.Bio)
		changed = true
	}
	if isBlank(current.Location) && !isBlank(claims.Location) {
		current.Location = strings.TrimSpace(claims.Location)
		changed = true
	}
	return current, changed
}

// ShouldEnqueueAvatar decides whether an avatar fetch job should be enqueued
// for the user. A custom avatar the user set themselves is only replaced when
// the override policy allows it.
func ShouldEnqueueAvatar(user *domain.User, claims domain.IdentityClaims, overrideAllowed bool) bool {
	if isBlank(claims.Picture) {
		return false
	}
	if user.HasCustomAvatar() && !overrideAllowed {
		return false
	}
	return true
}

// BuildAssociationMetadata assembles the metadata records stored alongside an
// association. Credentials are reserved and stay empty.
func BuildAssociationMetadata(claims domain.IdentityClaims, provenance domain.LinkProvenance) (domain.AssociationInfo, domain.AssociationCredentials, domain.AssociationExtra) {
	info := domain.AssociationInfo{
		Email:   claims.Email,
		Name:    strings.TrimSpace(claims.Name),
		Picture: claims.Picture,
	}
	extra := domain.AssociationExtra{
		EmailVerified: claims.EmailVerified,
		Provenance:    provenance,
	}
	return info, domain.AssociationCredentials{}, extra
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
