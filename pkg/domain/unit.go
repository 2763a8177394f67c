package domain

import "context"

// Unit is a named processing capability. Implementations must honour ctx
// cancellation; the orchestrator imposes no timeout of its own.
type Unit interface {
	Execute(ctx context.Context, input string) (string, error)
}

// UnitFunc adapts a plain function into a Unit.
type UnitFunc func(ctx context.Context, input string) (string, error)

// Execute calls f(ctx, input).
func (f UnitFunc) Execute(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// Role names a registered unit.
type Role = string

// Built-in roles. The orchestrator is generic over any registered role;
// these exist for the default catalog only.
const (
	RolePlanner   Role = "planner"
	RoleRetriever Role = "retriever"
	RoleAnalyst   Role = "analyst"
	RoleValidator Role = "validator"
	RoleLead      Role = "lead"
	RoleExpert    Role = "expert"
)

// Step is one pipeline entry: the role to invoke and its fully expanded input.
type Step struct {
	Role  string `json:"role"`
	Input string `json:"input"`
}
