package orchestrator

import (
	"fmt"

	"github.com/aescanero/agentflow/pkg/domain"
)

// Validator checks graph definitions for structural errors.
type Validator struct{}

// NewValidator creates a new graph validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that node ids are present and unique, that the entry is
// declared and that every edge endpoint names a declared node. Ordering
// and cycle checks happen in Build.
func (v *Validator) Validate(def domain.GraphDefinition) error {
	if len(def.Nodes) == 0 {
		return fmt.Errorf("%w: graph must have at least one node", domain.ErrInvalidGraph)
	}

	nodeIDs := make(map[string]bool, len(def.Nodes))
	for i, node := range def.Nodes {
		if node.ID == "" {
			return fmt.Errorf("%w: node %d has no id", domain.ErrInvalidGraph, i)
		}
		if nodeIDs[node.ID] {
			return fmt.Errorf("%w: duplicate node id %q", domain.ErrInvalidGraph, node.ID)
		}
		nodeIDs[node.ID] = true
	}

	if def.Entry == "" {
		return fmt.Errorf("%w: entry node is required", domain.ErrInvalidGraph)
	}
	if !nodeIDs[def.Entry] {
		return fmt.Errorf("%w: entry node %q", domain.ErrUnknownNode, def.Entry)
	}

	for _, edge := range def.Edges {
		if !nodeIDs[edge.From] {
			return fmt.Errorf("%w: edge source %q", domain.ErrUnknownNode, edge.From)
		}
		if !nodeIDs[edge.To] {
			return fmt.Errorf("%w: edge target %q", domain.ErrUnknownNode, edge.To)
		}
	}

	return nil
}
