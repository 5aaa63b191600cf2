// Package otel publishes bankAuth engine metrics as OpenTelemetry
// observable instruments.
//
// [New] registers one Int64ObservableCounter per metric family. The series of
// a family are attribute sets, so OTP counters carry a purpose attribute
// ("signup-otp" or "reset-otp"). The token validation histogram is exported
// as a bucket gauge keyed by an "le" attribute plus a count gauge. A single
// callback reads the engine snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
