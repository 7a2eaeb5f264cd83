// Package metrics exposes tracker progress as Prometheus collectors.
package metrics
