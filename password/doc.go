// Package password implements the credential verifiers used by bankAuth.
//
// [Bcrypt] is the default (cost 10). [Argon2] is available for deployments
// that prefer a memory-hard function; its hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Verify] dispatches on the stored digest so accounts hashed under either
// algorithm keep working after the configured algorithm changes.
//
// # What this package must NOT do
//
//   - Enforce password policy; the engine does that before hashing.
//   - Log plaintext passwords or digests.
package password
