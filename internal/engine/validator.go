package engine

import (
	"fmt"
	"sort"
	"strings"

	"ragicflow/internal/plugin"
	"ragicflow/internal/ragic"
	"ragicflow/internal/types"
)

// ValidationError collects multiple validation issues.
type ValidationError struct {
	Errors []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(ve.Errors, "\n  - "))
}

func (ve *ValidationError) Add(msg string) {
	ve.Errors = append(ve.Errors, msg)
}

func (ve *ValidationError) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ValidateFlow validates a flow definition against the registry and internal consistency.
func ValidateFlow(flow *types.FlowDef, registry *plugin.Registry) error {
	ve := &ValidationError{}

	if flow.Name == "" {
		ve.Add("flow 'name' is required")
	}
	if len(flow.Steps) == 0 {
		ve.Add("flow must have at least one step")
	}
	if flow.Trigger != nil {
		validateTrigger(flow.Trigger, ve)
	}

	// Collected up front: a forward reference is not an unknown step.
	stepNames := make(map[string]int)
	for i, step := range flow.Steps {
		if _, exists := stepNames[step.Name]; step.Name != "" && !exists {
			stepNames[step.Name] = i
		}
	}

	for i, step := range flow.Steps {
		if step.Name == "" {
			ve.Add(fmt.Sprintf("step %d: 'name' is required", i+1))
			continue
		}
		if first := stepNames[step.Name]; first != i {
			ve.Add(fmt.Sprintf("step %d: duplicate step name %q (first at step %d)", i+1, step.Name, first+1))
		}

		if step.Node == "" {
			ve.Add(fmt.Sprintf("step %q: 'node' is required", step.Name))
		} else if node, ok := registry.Get(step.Node); !ok {
			ve.Add(fmt.Sprintf("step %q: node %q not found in registry", step.Name, step.Node))
		} else {
			validateStepParameters(step, node, ve)
		}

		switch step.OnError {
		case "", "abort", "continue", "skip":
			// valid
		default:
			ve.Add(fmt.Sprintf("step %q: invalid on_error value %q (must be abort, continue, or skip)", step.Name, step.OnError))
		}

		// Validate step references point to previous steps.
		if step.Input != nil {
			validateStepRefs(step.Input, stepNames, step.Name, i, ve)
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateTrigger(trigger *types.TriggerDef, ve *ValidationError) {
	switch trigger.Type {
	case types.TriggerWebhook:
		if !strings.HasPrefix(trigger.Path, "/") {
			ve.Add(fmt.Sprintf("trigger: webhook path %q must start with /", trigger.Path))
		}
	case types.TriggerRagic:
		if trigger.SheetURL != "" {
			if _, err := ragic.ParseSheetURL(trigger.SheetURL); err != nil {
				ve.Add(fmt.Sprintf("trigger: %v", err))
			}
		}
	default:
		ve.Add(fmt.Sprintf("trigger: unknown type %q (must be %s or %s)", trigger.Type, types.TriggerRagic, types.TriggerWebhook))
	}
}

// validateStepParameters checks the action and parameter names against the
// node's schema. When no parameter holds an expression the values are checked
// too, since they are final.
func validateStepParameters(step types.StepDef, node plugin.Node, ve *ValidationError) {
	if step.Action == "" {
		ve.Add(fmt.Sprintf("step %q: 'action' is required", step.Name))
		return
	}
	if !plugin.HasAction(node, step.Action) {
		ve.Add(fmt.Sprintf("step %q: node %q does not support action %q", step.Name, step.Node, step.Action))
		return
	}

	desc := node.Description()
	var unknown []string
	for name := range step.Input {
		if name == plugin.ActionParameter {
			ve.Add(fmt.Sprintf("step %q: set the action with 'action', not as an input parameter", step.Name))
			continue
		}
		if _, ok := desc.Property(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		ve.Add(fmt.Sprintf("step %q: node %q has no parameter %q", step.Name, step.Node, name))
	}

	if hasExpression(step.Input) {
		return
	}
	params := make(map[string]any, len(step.Input)+1)
	for k, v := range step.Input {
		params[k] = v
	}
	params[plugin.ActionParameter] = step.Action
	for _, problem := range desc.ValidateParameters(desc.ApplyDefaults(params)) {
		ve.Add(fmt.Sprintf("step %q: %s", step.Name, problem))
	}
}

func hasExpression(v any) bool {
	switch val := v.(type) {
	case string:
		return exprRegex.MatchString(val)
	case map[string]any:
		for _, item := range val {
			if hasExpression(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if hasExpression(item) {
				return true
			}
		}
	}
	return false
}

// ValidateInput checks that required input fields are present.
func ValidateInput(flow *types.FlowDef, input map[string]any) error {
	if flow.Input == nil {
		return nil
	}

	ve := &ValidationError{}
	for name, field := range flow.Input.Properties {
		if field.Required {
			if _, ok := input[name]; !ok {
				ve.Add(fmt.Sprintf("required input field %q is missing", name))
			}
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateStepRefs(input map[string]any, stepNames map[string]int, currentStep string, currentIndex int, ve *ValidationError) {
	for _, v := range input {
		validateValueRefs(v, stepNames, currentStep, currentIndex, ve)
	}
}

func validateValueRefs(v any, stepNames map[string]int, currentStep string, currentIndex int, ve *ValidationError) {
	switch val := v.(type) {
	case string:
		checkStringRefs(val, stepNames, currentStep, currentIndex, ve)
	case map[string]any:
		validateStepRefs(val, stepNames, currentStep, currentIndex, ve)
	case []any:
		for _, item := range val {
			validateValueRefs(item, stepNames, currentStep, currentIndex, ve)
		}
	}
}

func checkStringRefs(s string, stepNames map[string]int, currentStep string, currentIndex int, ve *ValidationError) {
	matches := exprRegex.FindAllStringSubmatch(s, -1)
	for _, match := range matches {
		expr := strings.TrimSpace(match[1])
		path := strings.SplitN(expr, "|", 2)[0]
		path = strings.TrimSpace(path)

		if !strings.HasPrefix(path, "steps.") {
			continue
		}

		// Extract step name from "steps.step-name.output.field"
		rest := strings.TrimPrefix(path, "steps.")
		parts := strings.SplitN(rest, ".", 2)
		refName := parts[0]

		idx, exists := stepNames[refName]
		if !exists {
			ve.Add(fmt.Sprintf("step %q: references unknown step %q", currentStep, refName))
		} else if idx >= currentIndex {
			ve.Add(fmt.Sprintf("step %q: references step %q which has not executed yet", currentStep, refName))
		}
	}
}
