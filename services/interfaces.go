package services

// PasswordHasher hashes and verifies account passwords. Accounts created by
// reconciliation get an unguessable placeholder hash; until the owner sets a
// real password, password login stays impossible.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}
