// Package resilience wraps database work in bounded exponential-backoff
// retries. Only failures classified as transient by database.IsTransient are
// retried; every run is logged and, when configured, counted in Prometheus.
package resilience
