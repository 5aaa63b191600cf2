// Package internal contains helpers that are private to bankAuth: OTP code
// generation and the HMAC digest that binds a code to its identity.
//
// # Sub-packages
//
//   - limiters: Redis fixed-window request limiter and cooldown marker
//   - stores: Redis OTP secret store, verified marker, existence cache
//   - logging: zap logger construction shared by the binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public bankAuth API.
//   - Log or return plaintext codes other than to the caller that generated them.
package internal
