// Package llm builds the units registered for each role.
//
// The factory creates units based on provider configuration:
//   - anthropic: Claude via the Messages API
//   - echo: offline unit that echoes its input, for local runs and tests
package llm
