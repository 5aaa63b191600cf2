// Package stores provides the short-lived Redis records used by the OTP
// lifecycle: the OTP secret digest, the signup "verified" marker, and the
// cache-aside account existence cache.
//
// # Design
//
// Every record is a plain string value with a TTL; expiry is the only
// cleanup mechanism. Digests are stored, never plaintext codes. Nothing is
// cached in process: every read goes to Redis.
//
// # Architecture boundaries
//
// This package owns key layout and Redis I/O only. It does NOT compare
// secrets, enforce limits, or decide lock transitions.
//
// # What this package must NOT do
//
//   - Import bankAuth or any sibling internal package.
//   - Log or expose plaintext secrets.
package stores
