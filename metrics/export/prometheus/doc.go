// Package prometheus renders authflow metrics in the Prometheus text
// exposition format. It does not register anything globally; mount
// Exporter.Handler where the scraper expects it.
package prometheus
