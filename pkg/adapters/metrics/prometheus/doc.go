// Package prometheus implements the metrics collector port with
// Prometheus counters, histograms and gauges under the support_ prefix.
package prometheus
