package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionParameter is the property that selects a node's action. Steps carry
// it in StepDef.Action rather than in their input.
const ActionParameter = "action"

// PropertyType is the kind of value a property holds.
type PropertyType string

const (
	TypeString     PropertyType = "string"
	TypeNumber     PropertyType = "number"
	TypeBoolean    PropertyType = "boolean"
	TypeOptions    PropertyType = "options"
	TypeJSON       PropertyType = "json"
	TypeCollection PropertyType = "collection"
)

// Option is one choice of an options property.
type Option struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// DisplayOptions decide when a property applies. Every Show entry must
// match and no Hide entry may match; an absent parameter matches nothing.
type DisplayOptions struct {
	Show map[string][]any `json:"show,omitempty"`
	Hide map[string][]any `json:"hide,omitempty"`
}

// Property describes one node parameter.
type Property struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Type        PropertyType `json:"type"`
	Description string       `json:"description,omitempty"`
	Required    bool         `json:"required,omitempty"`
	Secret      bool         `json:"secret,omitempty"`
	Default     any          `json:"default,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	MinValue    *float64     `json:"min_value,omitempty"`

	// LoadOptionsMethod names the OptionsLoader method that fills Options at runtime.
	LoadOptionsMethod    string   `json:"load_options_method,omitempty"`
	LoadOptionsDependsOn []string `json:"load_options_depends_on,omitempty"`

	Display *DisplayOptions `json:"display,omitempty"`

	// Fields describe each entry of a collection.
	Fields []Property `json:"fields,omitempty"`
}

// CredentialType describes the credential a node authenticates with.
type CredentialType struct {
	Name             string     `json:"name"`
	DisplayName      string     `json:"display_name"`
	DocumentationURL string     `json:"documentation_url,omitempty"`
	Properties       []Property `json:"properties"`
}

// Description is a node's declarative schema.
type Description struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Description string           `json:"description"`
	Group       string           `json:"group"`
	Version     int              `json:"version"`
	Credentials []CredentialType `json:"credentials,omitempty"`
	Properties  []Property       `json:"properties"`
}

// Float returns a pointer for MinValue.
func Float(f float64) *float64 { return &f }

// Property looks up a property by name.
func (d Description) Property(name string) (Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// IsTrigger reports whether the node starts flows instead of running in them.
func (d Description) IsTrigger() bool { return d.Group == "trigger" }

// ApplyDefaults returns a copy of params with defaults filled in for every
// visible property. Properties are visited in declaration order, so a
// default may make later properties visible.
func (d Description) ApplyDefaults(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(d.Properties))
	for k, v := range params {
		out[k] = v
	}
	for _, p := range d.Properties {
		if _, ok := out[p.Name]; ok || p.Default == nil {
			continue
		}
		if p.Visible(out) {
			out[p.Name] = p.Default
		}
	}
	return out
}

// ValidateParameters checks visible properties: required values, option
// membership, number bounds and collection entries. Hidden properties are ignored.
func (d Description) ValidateParameters(params map[string]any) []string {
	var problems []string
	for _, p := range d.Properties {
		if !p.Visible(params) {
			continue
		}
		problems = append(problems, p.check(params[p.Name], p.Name)...)
	}
	return problems
}

// Visible evaluates the property's display rules against params.
func (p Property) Visible(params map[string]any) bool {
	if p.Display == nil {
		return true
	}
	for key, allowed := range p.Display.Show {
		if !matchesAny(params[key], allowed) {
			return false
		}
	}
	for key, denied := range p.Display.Hide {
		if matchesAny(params[key], denied) {
			return false
		}
	}
	return true
}

func (p Property) check(v any, label string) []string {
	if isEmpty(v) {
		if p.Required {
			return []string{fmt.Sprintf("parameter %q is required", label)}
		}
		return nil
	}

	switch p.Type {
	case TypeOptions:
		if len(p.Options) == 0 {
			return nil
		}
		s := fmt.Sprint(v)
		for _, o := range p.Options {
			if o.Value == s {
				return nil
			}
		}
		return []string{fmt.Sprintf("parameter %q: %q is not one of %s", label, s, optionValues(p.Options))}

	case TypeNumber:
		n, ok := toFloat(v)
		if !ok {
			return []string{fmt.Sprintf("parameter %q: %v is not a number", label, v)}
		}
		if p.MinValue != nil && n < *p.MinValue {
			return []string{fmt.Sprintf("parameter %q: %v is below the minimum %v", label, v, *p.MinValue)}
		}

	case TypeBoolean:
		switch b := v.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(b); err != nil {
				return []string{fmt.Sprintf("parameter %q: %q is not a boolean", label, b)}
			}
		default:
			return []string{fmt.Sprintf("parameter %q: %v is not a boolean", label, v)}
		}

	case TypeCollection:
		entries, ok := collectionEntries(v)
		if !ok {
			return []string{fmt.Sprintf("parameter %q must be a list of objects", label)}
		}
		var problems []string
		for i, entry := range entries {
			for _, f := range p.Fields {
				problems = append(problems, f.check(entry[f.Name], fmt.Sprintf("%s[%d].%s", label, i, f.Name))...)
			}
		}
		return problems
	}
	return nil
}

func collectionEntries(v any) ([]map[string]any, bool) {
	switch val := v.(type) {
	case []map[string]any:
		return val, true
	case map[string]any:
		return []map[string]any{val}, true
	case []any:
		entries := make([]map[string]any, 0, len(val))
		for _, e := range val {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, false
			}
			entries = append(entries, m)
		}
		return entries, true
	}
	return nil, false
}

func matchesAny(v any, values []any) bool {
	if v == nil {
		return false
	}
	s := fmt.Sprint(v)
	for _, candidate := range values {
		if fmt.Sprint(candidate) == s {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []map[string]any:
		return len(val) == 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func optionValues(options []Option) string {
	values := make([]string, len(options))
	for i, o := range options {
		values[i] = o.Value
	}
	return strings.Join(values, ", ")
}
