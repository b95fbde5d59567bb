package ragic

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Option is one entry of a dropdown populated from remote metadata.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListForms returns the forms the API key administers.
func (c *Client) ListForms(ctx context.Context) ([]Option, error) {
	v, err := c.doJSON(ctx, http.MethodGet, c.base+"/api/http/integromatForms.jsp"+newQuery("n8n").String(), nil)
	if err != nil {
		return nil, err
	}
	forms, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ragic: unexpected forms response %T", v)
	}

	options := make([]Option, 0, len(forms))
	for _, raw := range forms {
		info, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := info["displayName"].(string)
		p, _ := info["path"].(string)
		options = append(options, Option{Name: name, Value: p})
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].Name != options[j].Name {
			return options[i].Name < options[j].Name
		}
		return options[i].Value < options[j].Value
	})
	return options, nil
}

// ListFields returns the fields of a form, labelled "<name> (<field id>)".
func (c *Client) ListFields(ctx context.Context, form string) ([]Option, error) {
	if strings.Trim(form, "/ ") == "" {
		return nil, nil
	}
	url := recordPath(c.base, form, nil) + newQuery("api", "def", "n8n").String()
	v, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	def, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ragic: unexpected form definition %T", v)
	}
	fields, _ := def["fields"].(map[string]any)

	options := make([]Option, 0, len(fields))
	for key, raw := range fields {
		id, ok := strings.CutPrefix(key, "fid")
		if !ok {
			continue
		}
		var name string
		if info, ok := raw.(map[string]any); ok {
			name, _ = info["name"].(string)
		}
		options = append(options, Option{Name: name + " (" + id + ")", Value: id})
	}
	sort.Slice(options, func(i, j int) bool {
		a, b := options[i].Value, options[j].Value
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return options, nil
}
