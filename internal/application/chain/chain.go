// Package chain holds the default role catalog and the prompt templates
// that expand a user query into pipeline steps and graph definitions.
package chain

import (
	"strings"

	"github.com/aescanero/agentflow/pkg/domain"
)

// QueryPlaceholder is replaced with the user query during expansion.
const QueryPlaceholder = "{query}"

// RoleSpec describes a unit to register at startup.
type RoleSpec struct {
	Role         string
	SystemPrompt string
}

// DefaultRoles is the built-in role catalog.
func DefaultRoles() []RoleSpec {
	return []RoleSpec{
		{
			Role: domain.RolePlanner,
			SystemPrompt: "Break complex problems into 2-3 actionable subtasks. " +
				"Provide clear, structured response.",
		},
		{
			Role: domain.RoleRetriever,
			SystemPrompt: "Identify relevant information sources and key data points. " +
				"Provide structured information summary.",
		},
		{
			Role: domain.RoleAnalyst,
			SystemPrompt: "Provide expert analysis and actionable insights. " +
				"Give clear findings and recommendations.",
		},
		{
			Role: domain.RoleValidator,
			SystemPrompt: "Validate analysis quality, accuracy, and completeness. " +
				"Provide validation status and quality assessment.",
		},
		{
			Role:         domain.RoleLead,
			SystemPrompt: "Research leader. Coordinate analysis.",
		},
		{
			Role:         domain.RoleExpert,
			SystemPrompt: "Domain expert. Provide technical insights.",
		},
	}
}

// StepTemplate is a pipeline step whose prompt may reference {query}.
type StepTemplate struct {
	Role   string `json:"role"`
	Prompt string `json:"prompt"`
}

// DefaultPipeline is the planner → retriever → analyst → validator chain.
func DefaultPipeline() []StepTemplate {
	return []StepTemplate{
		{Role: domain.RolePlanner, Prompt: "Analyze and break down this request: {query}"},
		{Role: domain.RoleRetriever, Prompt: "Identify key information sources for: {query}"},
		{Role: domain.RoleAnalyst, Prompt: "Provide expert analysis for: {query}"},
		{Role: domain.RoleValidator, Prompt: "Validate the analysis quality for: {query}"},
	}
}

// Expand substitutes query into every template. An empty template list
// expands the default pipeline.
func Expand(query string, templates []StepTemplate) []domain.Step {
	if len(templates) == 0 {
		templates = DefaultPipeline()
	}
	steps := make([]domain.Step, len(templates))
	for i, t := range templates {
		steps[i] = domain.Step{
			Role:  t.Role,
			Input: strings.ReplaceAll(t.Prompt, QueryPlaceholder, query),
		}
	}
	return steps
}

// DefaultGraph is the lead → expert research graph.
func DefaultGraph() domain.GraphDefinition {
	return domain.GraphDefinition{
		Nodes: []domain.NodeDefinition{
			{ID: domain.RoleLead, Role: domain.RoleLead},
			{ID: domain.RoleExpert, Role: domain.RoleExpert},
		},
		Edges: []domain.Edge{{From: domain.RoleLead, To: domain.RoleExpert}},
		Entry: domain.RoleLead,
	}
}
