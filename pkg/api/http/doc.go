// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Pipeline and graph runs
//   - Stored run reports and cancellation
//   - Registered roles
//   - Health checks
//   - Prometheus metrics
package http
