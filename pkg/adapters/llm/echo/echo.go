// Package echo provides an offline unit that reflects its input.
package echo

import (
	"context"
	"fmt"
)

// Unit answers every input with "[role] input".
type Unit struct {
	role string
}

// New creates an echo unit labelled with role.
func New(role string) *Unit {
	return &Unit{role: role}
}

// Execute returns the labelled input, or ctx's error once it is done.
func (u *Unit) Execute(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", u.role, input), nil
}
