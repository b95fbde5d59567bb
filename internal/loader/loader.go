package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ragicflow/internal/ragic"
	"ragicflow/internal/types"
)

// LoadFlow reads and parses a single YAML flow file.
func LoadFlow(path string) (*types.FlowDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow file %s: %w", path, err)
	}

	var flow types.FlowDef
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("parsing flow file %s: %w", path, err)
	}

	if flow.Name == "" {
		return nil, fmt.Errorf("flow file %s: missing required field 'name'", path)
	}
	if len(flow.Steps) == 0 {
		return nil, fmt.Errorf("flow file %s: must have at least one step", path)
	}
	applyTriggerDefaults(flow.Trigger)
	for i := range flow.Steps {
		flow.Steps[i].Input = normalizeMap(flow.Steps[i].Input)
	}

	return &flow, nil
}

// normalizeValue rewrites the map[any]any that yaml.v3 produces for mappings
// with non-string keys (unquoted Ragic field IDs) into map[string]any, which
// the JSON encoder and the expression resolver expect.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case map[string]any:
		return normalizeMap(val)
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func applyTriggerDefaults(trigger *types.TriggerDef) {
	if trigger == nil {
		return
	}
	trigger.Type = strings.ToLower(strings.TrimSpace(trigger.Type))
	if trigger.Type == types.TriggerRagic && trigger.Event == "" {
		trigger.Event = ragic.DefaultWebhookEvent
	}
}

// FlowsByTrigger returns the flows started by the given trigger type, sorted by name.
func FlowsByTrigger(flows map[string]*types.FlowDef, triggerType string) []*types.FlowDef {
	var out []*types.FlowDef
	for _, flow := range flows {
		if flow.Trigger != nil && flow.Trigger.Type == triggerType {
			out = append(out, flow)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadFlows reads all YAML flow files from a directory, recursively.
func LoadFlows(dir string) (map[string]*types.FlowDef, error) {
	flows := make(map[string]*types.FlowDef)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		flow, err := LoadFlow(path)
		if err != nil {
			return err
		}

		if _, exists := flows[flow.Name]; exists {
			return fmt.Errorf("duplicate flow name %q in %s", flow.Name, path)
		}
		flows[flow.Name] = flow
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading flows from %s: %w", dir, err)
	}

	return flows, nil
}
