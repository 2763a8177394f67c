// Package registry holds the process-wide mapping from role names to units.
//
// The registry is populated at startup and read thereafter; it never sees
// invocation state.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/agentflow/pkg/domain"
)

// Registry maps role names to units.
type Registry struct {
	mu    sync.RWMutex
	units map[string]domain.Unit
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{units: make(map[string]domain.Unit)}
}

// Register adds unit under role. It fails with domain.ErrDuplicateRole if
// the role is already present.
func (r *Registry) Register(role string, unit domain.Unit) error {
	if role == "" {
		return fmt.Errorf("role name is required")
	}
	if unit == nil {
		return fmt.Errorf("unit for role %q is nil", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.units[role]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRole, role)
	}
	r.units[role] = unit
	return nil
}

// Resolve returns the unit registered under role, or domain.ErrUnknownRole.
func (r *Registry) Resolve(role string) (domain.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unit, ok := r.units[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	return unit, nil
}

// Roles returns the sorted names of all registered roles.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.units))
	for role := range r.units {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Len returns the number of registered roles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
