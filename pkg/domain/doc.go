// Package domain defines the core types shared by the orchestrator, the
// adapters and the API layers.
//
// A Unit is a black-box capability invoked with a text input. Each
// invocation yields one ExecutionRecord; a run's records form a Trace which
// the aggregator reduces into a WorkflowResult. Report is the presentation
// shape handed to external consumers.
package domain
