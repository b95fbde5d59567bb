package plugin

import (
	"context"

	"ragicflow/internal/types"
)

// Node defines the interface that all flow nodes must implement.
type Node interface {
	// Name returns the node identifier (e.g., "ragic", "log").
	Name() string

	// Description returns the node's parameter schema.
	Description() Description

	// Actions returns the actions the node supports.
	Actions() []ActionDef

	// Execute runs a specific action with the given input.
	Execute(ctx context.Context, action string, input map[string]any) (*types.StepResult, error)

	// Validate checks if the node is properly configured.
	Validate() error
}

// OptionsLoader is implemented by nodes whose dropdowns are filled from remote metadata.
type OptionsLoader interface {
	LoadOptions(ctx context.Context, method string, params map[string]any) ([]Option, error)
}

// ActionDef describes an action a node supports.
type ActionDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActionsOf lists the options of the "action" property as action definitions.
func ActionsOf(d Description) []ActionDef {
	p, ok := d.Property(ActionParameter)
	if !ok {
		return nil
	}
	actions := make([]ActionDef, 0, len(p.Options))
	for _, o := range p.Options {
		actions = append(actions, ActionDef{Name: o.Value, Description: o.Description})
	}
	return actions
}

// HasAction reports whether n supports action.
func HasAction(n Node, action string) bool {
	for _, a := range n.Actions() {
		if a.Name == action {
			return true
		}
	}
	return false
}
