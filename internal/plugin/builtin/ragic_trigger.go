package builtin

import (
	"context"
	"fmt"

	"ragicflow/internal/plugin"
	"ragicflow/internal/ragic"
	"ragicflow/internal/types"
)

// Trigger node actions.
const (
	ActionCheck       = "check"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// RagicTriggerNode manages the webhook subscription that starts flows on
// sheet events. Incoming callbacks are shaped by TriggerItems.
type RagicTriggerNode struct {
	client *ragic.TriggerClient
	err    error
}

func NewRagicTriggerNode(creds ragic.TriggerCredentials, opts ...ragic.ClientOption) *RagicTriggerNode {
	client, err := ragic.NewTriggerClient(creds, opts...)
	return &RagicTriggerNode{client: client, err: err}
}

func (n *RagicTriggerNode) Name() string { return "ragic_trigger" }

func (n *RagicTriggerNode) Actions() []plugin.ActionDef { return plugin.ActionsOf(n.Description()) }

func (n *RagicTriggerNode) Validate() error {
	if n.err != nil {
		return fmt.Errorf("ragic trigger: %w", n.err)
	}
	return nil
}

func (n *RagicTriggerNode) Description() plugin.Description {
	return plugin.Description{
		Name:        n.Name(),
		DisplayName: "Ragic Trigger",
		Description: "Webhook trigger for Ragic sheet events",
		Group:       "trigger",
		Version:     1,
		Credentials: []plugin.CredentialType{RagicTriggerCredentialType},
		Properties: []plugin.Property{
			{
				Name: plugin.ActionParameter, DisplayName: "Action", Type: plugin.TypeOptions, Default: ActionCheck,
				Options: []plugin.Option{
					{Name: "Check Exists", Value: ActionCheck, Description: "Report whether the callback URL is registered"},
					{Name: "Subscribe", Value: ActionSubscribe, Description: "Register the callback URL"},
					{Name: "Unsubscribe", Value: ActionUnsubscribe, Description: "Remove the callback URL"},
				},
			},
			{
				Name: "callback_url", DisplayName: "Callback URL", Type: plugin.TypeString, Required: true,
				Description: "URL Ragic calls when the event fires",
			},
			{
				Name: "event", DisplayName: "Event", Type: plugin.TypeString, Default: ragic.DefaultWebhookEvent,
				Display: &plugin.DisplayOptions{Show: map[string][]any{
					plugin.ActionParameter: {ActionSubscribe, ActionUnsubscribe},
				}},
			},
		},
	}
}

type triggerParams struct {
	CallbackURL string `mapstructure:"callback_url"`
	Event       string `mapstructure:"event"`
}

func (n *RagicTriggerNode) Execute(ctx context.Context, action string, input map[string]any) (*types.StepResult, error) {
	if n.err != nil {
		return nil, fmt.Errorf("ragic trigger: %w", n.err)
	}
	if !plugin.HasAction(n, action) {
		return nil, fmt.Errorf("ragic trigger: unknown action %q", action)
	}

	var p triggerParams
	if err := decodeParams(n.Description(), action, input, &p); err != nil {
		return nil, fmt.Errorf("ragic trigger: %w", err)
	}

	output := map[string]any{
		"sheet":        n.client.Sheet().String(),
		"callback_url": p.CallbackURL,
	}
	switch action {
	case ActionCheck:
		exists, err := n.client.WebhookExists(ctx, p.CallbackURL)
		if err != nil {
			return nil, fmt.Errorf("ragic trigger: check: %w", err)
		}
		output["exists"] = exists
	case ActionSubscribe:
		if err := n.client.Subscribe(ctx, p.CallbackURL, p.Event); err != nil {
			return nil, fmt.Errorf("ragic trigger: subscribe: %w", err)
		}
		output["event"] = p.Event
	case ActionUnsubscribe:
		if err := n.client.Unsubscribe(ctx, p.CallbackURL, p.Event); err != nil {
			return nil, fmt.Errorf("ragic trigger: unsubscribe: %w", err)
		}
		output["event"] = p.Event
	}

	return &types.StepResult{Status: "success", Output: output}, nil
}

// CheckCredentials verifies the API key may watch the configured sheet.
func (n *RagicTriggerNode) CheckCredentials(ctx context.Context) error {
	if n.err != nil {
		return fmt.Errorf("ragic trigger: %w", n.err)
	}
	return n.client.CheckCredentials(ctx)
}

// TriggerItems shapes an incoming webhook callback into the trigger's output.
func TriggerItems(body any) []ragic.Item {
	return []ragic.Item{{JSON: map[string]any{"bodyData": body}}}
}
