// Package httpapi exposes the bankAuth engine over HTTP using gorilla/mux.
//
// # Routes
//
//	POST /user/generate-otp            signup OTP
//	POST /user/verify-otp              signup OTP verification
//	POST /user/signup                  account creation (201)
//	POST /user/login                   token pair
//	POST /user/logout                  bearer guarded
//	GET  /user/me                      bearer guarded
//	POST /reset-password/generate-otp  reset OTP (201)
//	POST /reset-password/verify-otp    reset OTP verification
//	POST /reset-password               new password
//	GET  /health
//	GET  /metrics
//
// Every route except /health and /metrics requires the X-traceId and
// X-operationId headers. Failures are rendered as an [ErrorInfo] body whose
// status is derived from the engine error kind.
//
// # What this package must NOT do
//
//   - Decide authentication outcomes. Every decision is delegated to the engine.
//   - Log request or response bodies.
package httpapi
