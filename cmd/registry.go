package cmd

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"ragicflow/internal/plugin"
	"ragicflow/internal/plugin/builtin"
	"ragicflow/internal/ragic"
)

func clientOptions() []ragic.ClientOption {
	return []ragic.ClientOption{ragic.WithTimeout(cfg.HTTPTimeout), ragic.WithLogger(log)}
}

// defaultRegistry registers the built-in nodes. sheetURL overrides the
// configured trigger sheet when set.
func defaultRegistry(sheetURL string) *plugin.Registry {
	return plugin.NewRegistry().MustRegister(
		builtin.NewRagicNode(cfg.Credentials(), clientOptions()...),
		builtin.NewRagicTriggerNode(cfg.TriggerCredentials(sheetURL), clientOptions()...),
		builtin.NewLogNode(log),
	)
}

func lookupNode(registry *plugin.Registry, name string) (plugin.Node, error) {
	node, ok := registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("node %q not found (available: %v)", name, registry.List())
	}
	return node, nil
}

func parseJSONObject(flag, raw string) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("parsing %s JSON: %w", flag, err)
	}
	if v == nil {
		v = map[string]any{}
	}
	return v, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
