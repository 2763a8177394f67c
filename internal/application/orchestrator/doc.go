// Package orchestrator implements the workflow orchestration core.
//
// A Runner turns one unit invocation into an ExecutionRecord, isolating the
// unit's failure. Pipeline runs declared steps in order; GraphExecutor runs
// the subgraph reachable from an entry node in dependency order. Summarize
// reduces either trace into a WorkflowResult.
//
// The Manager is the entry point for callers: it assigns run ids, publishes
// lifecycle events, records metrics and stores the formatted report.
package orchestrator
