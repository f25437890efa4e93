package domain

// IdentityClaims is the trusted claim set describing an external identity.
// Token validation and decoding happen upstream; by the time claims reach the
// reconciliation engine they are assumed authentic.
type IdentityClaims struct {
	Provider      string `json:"provider"`
	Subject       string `json:"subject"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Bio           string `json:"bio,omitempty"`
	Location      string `json:"location,omitempty"`
}
