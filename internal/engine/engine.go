package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ragicflow/internal/plugin"
	"ragicflow/internal/types"
)

// Step and flow statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
	StatusPartial = "partial"
	StatusDryRun  = "dry_run"
)

// Engine executes flow definitions.
type Engine struct {
	Registry *plugin.Registry
	Logger   *zap.SugaredLogger
}

// NewEngine creates a new flow execution engine.
func NewEngine(registry *plugin.Registry, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{Registry: registry, Logger: log}
}

// Run executes a flow with the given input.
func (e *Engine) Run(ctx context.Context, flow *types.FlowDef, input map[string]any) (*types.FlowResult, error) {
	return e.RunWithSecrets(ctx, flow, input, nil)
}

// RunWithSecrets executes a flow with secrets available as ${{ secrets.NAME }}.
func (e *Engine) RunWithSecrets(ctx context.Context, flow *types.FlowDef, input map[string]any, secrets map[string]string) (*types.FlowResult, error) {
	if err := ValidateInput(flow, input); err != nil {
		return nil, err
	}

	result := &types.FlowResult{
		Flow:      flow.Name,
		Status:    StatusSuccess,
		StartedAt: time.Now().UTC(),
		Input:     input,
		Steps:     make([]types.StepResult, 0, len(flow.Steps)),
	}

	sctx := NewStepContext(input)
	sctx.Secrets = secrets
	log := e.Logger.With("flow", flow.Name)

	for _, step := range flow.Steps {
		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("flow cancelled before step %q: %v", step.Name, err)
			result.CompletedAt = time.Now().UTC()
			return result, nil
		}

		log.Debugw("step started", "step", step.Name, "node", step.Node, "action", step.Action)
		sr := e.executeStep(ctx, step, sctx)
		result.Steps = append(result.Steps, sr)
		sctx.AddStepResult(step.Name, &sr)

		if sr.Status != StatusFailed && sr.Status != StatusError {
			log.Debugw("step finished", "step", step.Name, "status", sr.Status, "duration_ms", sr.DurationMs)
			continue
		}
		log.Warnw("step failed", "step", step.Name, "node", step.Node, "action", step.Action, "error", sr.Error)

		onError := step.OnError
		if onError == "" {
			onError = "abort"
		}

		switch onError {
		case "abort":
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("step %q failed: %s", step.Name, sr.Error)
			result.CompletedAt = time.Now().UTC()
			return result, nil
		case "continue":
			result.Status = StatusPartial
		case "skip":
			// Just skip, don't affect overall status.
		}
	}

	result.CompletedAt = time.Now().UTC()
	return result, nil
}

// DryRun validates and resolves variables without actually executing steps.
func (e *Engine) DryRun(flow *types.FlowDef, input map[string]any, secrets map[string]string) (*types.FlowResult, error) {
	if err := ValidateFlow(flow, e.Registry); err != nil {
		return nil, err
	}
	if err := ValidateInput(flow, input); err != nil {
		return nil, err
	}

	result := &types.FlowResult{
		Flow:      flow.Name,
		Status:    StatusDryRun,
		StartedAt: time.Now().UTC(),
		Input:     input,
		Steps:     make([]types.StepResult, 0, len(flow.Steps)),
	}

	sctx := NewStepContext(input)
	sctx.Secrets = secrets

	for _, step := range flow.Steps {
		resolvedInput, err := sctx.ResolveMap(step.Input)

		sr := types.StepResult{
			Name:   step.Name,
			Node:   step.Node,
			Action: step.Action,
			Status: StatusDryRun,
		}

		if err != nil {
			sr.Status = "resolve_error"
			sr.Error = err.Error()
		} else {
			sr.Output = resolvedInput // Show what would be sent.
		}

		result.Steps = append(result.Steps, sr)
		// For dry-run, add a synthetic step result so later steps can reference it.
		sctx.AddStepResult(step.Name, &types.StepResult{
			Status: StatusDryRun,
			Output: map[string]any{"_dry_run": true},
		})
	}

	result.CompletedAt = time.Now().UTC()
	return result, nil
}

func (e *Engine) executeStep(ctx context.Context, step types.StepDef, sctx *StepContext) (sr types.StepResult) {
	sr = types.StepResult{
		Name:   step.Name,
		Node:   step.Node,
		Action: step.Action,
	}

	start := time.Now()
	defer func() {
		sr.DurationMs = time.Since(start).Milliseconds()
	}()

	node, ok := e.Registry.Get(step.Node)
	if !ok {
		sr.Status = StatusError
		sr.Error = fmt.Sprintf("node %q not found", step.Node)
		return sr
	}

	resolvedInput, err := sctx.ResolveMap(step.Input)
	if err != nil {
		sr.Status = StatusError
		sr.Error = fmt.Sprintf("resolving input: %v", err)
		return sr
	}

	stepResult, err := node.Execute(ctx, step.Action, resolvedInput)
	if err != nil {
		sr.Status = StatusError
		sr.Error = err.Error()
		return sr
	}

	sr.Status = stepResult.Status
	sr.Output = stepResult.Output
	sr.Error = stepResult.Error
	return sr
}
