package domain

import (
	"strings"
	"time"
)

// UserStatus defines the lifecycle state of a local account.
type UserStatus string

const (
	// UserStatusStaged marks a placeholder account (e.g. created by an
	// invitation or admin flow) that has not been claimed by its owner yet.
	UserStatusStaged  UserStatus = "STAGED"
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

// Profile holds the free-text fields a user may have filled in themselves.
// Reconciliation only ever fills blanks here, it never overwrites.
type Profile struct {
	Bio      string `bson:"bio,omitempty" json:"bio,omitempty"`
	Location string `bson:"location,omitempty" json:"location,omitempty"`
}

// User represents a local account in the directory.
type User struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Email        string     `bson:"email,omitempty" json:"email"`
	DisplayName  string     `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Status       UserStatus `bson:"status" json:"status"`
	PasswordHash string     `bson:"password_hash,omitempty" json:"-"`
	// AvatarURL is nil when the user never set a custom avatar.
	AvatarURL *string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Profile   Profile `bson:"profile" json:"profile"`
	// CustomAttributes carries auxiliary lookup keys, such as an external
	// subject id recorded through a channel that never created an
	// association row.
	CustomAttributes map[string]string `bson:"custom_attributes,omitempty" json:"-"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
}

// AttrExternalSubject is the custom attribute name under which an external
// subject id may have been recorded for a pre-existing account.
const AttrExternalSubject = "external_subject"

// Staged reports whether the account is still an unclaimed placeholder.
func (u *User) Staged() bool {
	return u.Status == UserStatusStaged
}

// HasCustomAvatar reports whether the user already set their own avatar.
func (u *User) HasCustomAvatar() bool {
	return u.AvatarURL != nil && *u.AvatarURL != ""
}

// NormalizeEmail canonicalizes an email address for directory lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
