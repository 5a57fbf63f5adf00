// Package otel publishes console metrics through OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per console counter
// and one Int64ObservableGauge per histogram bucket. A single callback reads
// the console's snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate console state.
package otel
