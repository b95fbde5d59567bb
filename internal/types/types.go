package types

import "time"

// FlowDef represents a parsed YAML flow definition.
type FlowDef struct {
	Name        string            `yaml:"name" json:"name"`
	Version     string            `yaml:"version" json:"version"`
	Description string            `yaml:"description" json:"description"`
	Input       *SchemaDef        `yaml:"input,omitempty" json:"input,omitempty"`
	Trigger     *TriggerDef       `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Steps       []StepDef         `yaml:"steps" json:"steps"`
	Metadata    map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// SchemaDef describes the input of a flow.
type SchemaDef struct {
	Properties map[string]FieldDef `yaml:"properties" json:"properties"`
}

// FieldDef describes a single field in a schema.
type FieldDef struct {
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	Required    bool   `yaml:"required" json:"required"`
}

// Trigger types.
const (
	TriggerRagic   = "ragic"
	TriggerWebhook = "webhook"
)

// TriggerDef describes how a flow is started.
//
// A "ragic" trigger subscribes to a sheet (SheetURL, or the configured
// default) for Event. A "webhook" trigger listens on a fixed Path.
type TriggerDef struct {
	Type     string `yaml:"type" json:"type"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	SheetURL string `yaml:"sheet_url,omitempty" json:"sheet_url,omitempty"`
	Event    string `yaml:"event,omitempty" json:"event,omitempty"`
}

// StepDef represents a single step in a flow.
type StepDef struct {
	Name    string         `yaml:"name" json:"name"`
	Node    string         `yaml:"node" json:"node"`
	Action  string         `yaml:"action" json:"action"`
	Input   map[string]any `yaml:"input" json:"input"`
	OnError string         `yaml:"on_error" json:"on_error"`
}

// StepResult holds the result of executing a single step.
type StepResult struct {
	Name       string         `json:"name"`
	Node       string         `json:"node"`
	Action     string         `json:"action"`
	Status     string         `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// FlowResult holds the result of an entire flow execution.
type FlowResult struct {
	Flow        string         `json:"flow"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Input       map[string]any `json:"input"`
	Steps       []StepResult   `json:"steps"`
	Error       string         `json:"error,omitempty"`
}
