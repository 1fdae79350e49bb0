// Package otel publishes authflow metrics through an OpenTelemetry Meter.
//
// Counters become Int64ObservableCounters. The notifier latency histogram
// is exposed as one cumulative gauge per bucket plus a count gauge. All
// instruments are read from a single snapshot per collection.
package otel
