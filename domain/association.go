package domain

import "time"

// LinkProvenance records how an association came to point at its user.
type LinkProvenance string

const (
	ProvenanceSubjectMatch   LinkProvenance = "subject_match"
	ProvenanceEmailMatch     LinkProvenance = "email_match"
	ProvenanceAttributeMatch LinkProvenance = "attribute_match"
	ProvenanceNewUser        LinkProvenance = "new_user"
)

// AssociationInfo snapshots display attributes of the external identity at
// link time.
type AssociationInfo struct {
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Picture string `bson:"picture,omitempty" json:"picture,omitempty"`
}

// AssociationCredentials is reserved for provider credentials (e.g. refresh
// tokens). Nothing writes it today.
type AssociationCredentials struct{}

// AssociationExtra carries linkage flags that are not display attributes.
type AssociationExtra struct {
	EmailVerified bool           `bson:"email_verified" json:"email_verified"`
	Provenance    LinkProvenance `bson:"provenance,omitempty" json:"provenance,omitempty"`
}

// Association links one external identity, identified by (provider, subject),
// to exactly one local user.
type Association struct {
	ID          string                 `bson:"_id,omitempty" json:"id,omitempty"`
	Provider    string                 `bson:"provider" json:"provider"`
	Subject     string                 `bson:"subject" json:"subject"`
	UserID      string                 `bson:"user_id" json:"user_id"`
	Info        AssociationInfo        `bson:"info" json:"info"`
	Credentials AssociationCredentials `bson:"credentials" json:"-"`
	Extra       AssociationExtra       `bson:"extra" json:"extra"`
	// LastUsedAt is refreshed on every successful reconciliation through
	// this association.
	LastUsedAt time.Time `bson:"last_used_at" json:"last_used_at"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
