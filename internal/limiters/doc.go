// Package limiters provides the Redis-backed throttles applied before an OTP
// is issued.
//
// # Limiters
//
//   - [RequestLimiter]: fixed window per (purpose, identity); the window TTL
//     is attached atomically on the first hit only.
//   - [CooldownMarker]: records the last issuance so a resend can be refused
//     until the configured interval has elapsed.
//
// Both types are nil-safe: a nil limiter never limits.
//
// # Architecture boundaries
//
// Each limiter owns its own key namespace under the configured prefix.
// Failures talking to Redis are wrapped with [ErrLimiterUnavailable]; the
// caller decides to fail closed.
//
// # What this package must NOT do
//
//   - Import bankAuth or any sibling internal package.
//   - Treat a Redis failure as "not limited".
package limiters
