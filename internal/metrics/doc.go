// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Refresh runs by terminal state and their duration
//   - Provider fetch attempts by source and outcome
//   - Snapshot writes
package metrics
