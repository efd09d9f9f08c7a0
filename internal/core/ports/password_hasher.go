package ports

// PasswordHasher hashes and verifies plaintext passwords. Verify must compare
// in constant time.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}
