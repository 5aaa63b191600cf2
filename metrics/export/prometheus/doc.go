// Package prometheus renders bankAuth engine metrics in Prometheus text
// exposition format.
//
// [New] wraps any [Source] (usually the *bankAuth.Engine) and [Exporter.Handler]
// serves the /metrics route. OTP series carry a purpose label, for example
//
//	bankauth_otp_issued_total{purpose="reset-otp"} 4
//
// The token validation histogram is only rendered while latency histograms
// are enabled on the engine.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
