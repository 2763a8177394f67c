package domain

// NodeDefinition declares a graph node backed by a registered role.
// Role defaults to ID when empty.
type NodeDefinition struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// RoleName returns the registry role backing the node.
func (n NodeDefinition) RoleName() string {
	if n.Role == "" {
		return n.ID
	}
	return n.Role
}

// Edge orders two nodes: From must execute before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphDefinition is the serialisable form of a workflow graph.
type GraphDefinition struct {
	Nodes []NodeDefinition `json:"nodes"`
	Edges []Edge           `json:"edges"`
	Entry string           `json:"entry"`
}
