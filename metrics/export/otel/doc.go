// Package otel publishes engine counters and the authorize latency histogram
// through OpenTelemetry observable instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. The caller owns the
// MeterProvider and supplies the Meter.
package otel
