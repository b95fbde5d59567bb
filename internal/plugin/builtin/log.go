package builtin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ragicflow/internal/plugin"
	"ragicflow/internal/types"
)

// LogNode writes messages through the structured logger for debugging flows.
type LogNode struct {
	log *zap.SugaredLogger
}

func NewLogNode(log *zap.SugaredLogger) *LogNode {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogNode{log: log}
}

func (l *LogNode) Name() string { return "log" }

func (l *LogNode) Actions() []plugin.ActionDef { return plugin.ActionsOf(l.Description()) }

func (l *LogNode) Description() plugin.Description {
	return plugin.Description{
		Name:        l.Name(),
		DisplayName: "Log",
		Description: "Write a message to the log",
		Group:       "transform",
		Version:     1,
		Properties: []plugin.Property{
			{
				Name: plugin.ActionParameter, DisplayName: "Action", Type: plugin.TypeOptions, Default: "print",
				Options: []plugin.Option{{Name: "Print", Value: "print", Description: "Log a message"}},
			},
			{Name: "message", DisplayName: "Message", Type: plugin.TypeString, Required: true},
			{
				Name: "level", DisplayName: "Level", Type: plugin.TypeOptions, Default: "info",
				Options: []plugin.Option{{Value: "debug"}, {Value: "info"}, {Value: "warn"}, {Value: "error"}},
			},
			{Name: "data", DisplayName: "Data", Type: plugin.TypeJSON},
		},
	}
}

func (l *LogNode) Execute(_ context.Context, action string, input map[string]any) (*types.StepResult, error) {
	if action != "print" {
		return nil, fmt.Errorf("log node: unknown action %q", action)
	}

	params := l.Description().ApplyDefaults(input)
	message := fmt.Sprintf("%v", params["message"])
	fields := []any{"node", l.Name()}
	if data, ok := params["data"]; ok {
		fields = append(fields, "data", data)
	}

	switch params["level"] {
	case "debug":
		l.log.Debugw(message, fields...)
	case "warn":
		l.log.Warnw(message, fields...)
	case "error":
		l.log.Errorw(message, fields...)
	default:
		l.log.Infow(message, fields...)
	}

	return &types.StepResult{
		Status: "success",
		Output: map[string]any{
			"message": message,
		},
	}, nil
}

func (l *LogNode) Validate() error { return nil }
