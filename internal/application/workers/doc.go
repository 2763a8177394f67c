// Package workers implements the worker pool used for opt-in parallel
// graph execution.
//
// The pool manages a fixed number of goroutines that:
//   - Consume tasks from a shared queue
//   - Track idle/busy/stopped status per worker
//   - Drain queued tasks before stopping on shutdown
//
// The health monitor periodically logs pool status and records it as metrics.
package workers
