// Package bankAuth provides the OTP lifecycle, account lockout and token
// engine behind a bank's signup, login and password reset flows.
//
// An [Engine] is wired once through [Builder.Build] and is safe for concurrent
// use. It coordinates a Redis ephemeral store (request windows, cooldowns, OTP
// digests, verified markers, revoked tokens) with a durable store reached
// through [UserRepository] and [OTPRepository].
//
// # Architecture boundaries
//
// bankAuth is the public surface: [Engine], [Builder], [Config], the error
// taxonomy ([ErrorKind], [Error]) and the domain types. Redis key layout lives
// under internal/, token signing in jwt, revocation in revocation, password
// hashing in password and delivery in notify.
//
// Concurrency on a single identity is not serialized in process. Request
// windows rely on atomic INCR with a first-hit expiry; durable writes rely on
// the repository's optimistic version check, and a lost race is returned as
// [KindConflict].
//
// # What this package must NOT do
//
//   - Cache OTP digests, lock state or revocations in process.
//   - Treat an ephemeral store failure during a rate check as permission.
//   - Return plaintext codes, digests or store errors in user-facing messages.
//   - Block a caller on notification delivery.
package bankAuth
