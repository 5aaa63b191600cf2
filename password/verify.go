package password

import "errors"

// ErrUnknownDigest is returned by Verify for digests of an unsupported scheme.
var ErrUnknownDigest = errors.New("unknown password digest format")

// Hasher is the common surface of Bcrypt and Argon2.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// Migrating hashes new passwords with Primary and verifies digests produced
// by either scheme.
type Migrating struct {
	Primary Hasher
	Bcrypt  *Bcrypt
	Argon2  *Argon2
}

// Hash delegates to Primary.
func (m Migrating) Hash(plaintext string) (string, error) {
	return m.Primary.Hash(plaintext)
}

// Verify selects the scheme from the digest prefix.
func (m Migrating) Verify(plaintext, digest string) (bool, error) {
	switch {
	case isBcryptDigest(digest) && m.Bcrypt != nil:
		return m.Bcrypt.Verify(plaintext, digest)
	case isArgon2Digest(digest) && m.Argon2 != nil:
		return m.Argon2.Verify(plaintext, digest)
	default:
		return false, ErrUnknownDigest
	}
}
