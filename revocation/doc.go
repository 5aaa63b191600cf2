// Package revocation records revoked-but-unexpired bearer tokens in Redis.
//
// Each entry expires at the moment the verifier would stop accepting the
// token (expiry plus clock-skew leeway), so the registry never needs a reaper and never grows past the set of live
// revoked tokens.
//
// # Architecture boundaries
//
// The registry asks a [TokenInspector] whether a token is valid and how long
// it has left; it never parses tokens itself. Keys are the SHA-256 of the
// token under "<prefix>blacklist:".
//
// # What this package must NOT do
//
//   - Store tokens for longer than their remaining validity plus leeway.
//   - Treat a Redis failure as "not revoked"; callers receive the error.
package revocation
