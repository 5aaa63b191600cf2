// Package internaldefs holds the metric families, label sets and bucket
// bounds shared by the Prometheus and OTel exporters, so both publish
// identical series.
//
// OTP counters are exported once per purpose ("signup-otp", "reset-otp")
// under a purpose label; related engine counters share a family and differ
// by a result or reason label.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
