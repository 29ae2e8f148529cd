// Package tool defines the tool contract, the registry, and the dispatcher
// that gates every execution behind permission and policy checks.
package tool

import "context"

// Tool is a single capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}
