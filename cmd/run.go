package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragicflow/internal/engine"
	"ragicflow/internal/loader"
)

var (
	inputJSON   string
	dryRun      bool
	secretsFile string
)

var runCmd = &cobra.Command{
	Use:   "run <flow-name>",
	Short: "Execute a flow with JSON input",
	Long: "Execute a flow once. Flows with a ragic trigger receive the callback " +
		`payload as input.bodyData, so pass --input '{"bodyData": {...}}' to replay one.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlow,
}

func init() {
	runCmd.Flags().StringVar(&inputJSON, "input", "{}", "JSON input for the flow")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would execute without running")
	runCmd.Flags().StringVar(&secretsFile, "secrets-file", "", "path to .env-style secrets file")
	rootCmd.AddCommand(runCmd)
}

func runFlow(cmd *cobra.Command, args []string) error {
	flowName := args[0]

	flows, err := loader.LoadFlows(flowsDir)
	if err != nil {
		return fmt.Errorf("loading flows: %w", err)
	}

	flow, ok := flows[flowName]
	if !ok {
		return fmt.Errorf("flow %q not found in %s", flowName, flowsDir)
	}

	input, err := parseJSONObject("input", inputJSON)
	if err != nil {
		return err
	}

	sheetURL := ""
	if flow.Trigger != nil {
		sheetURL = flow.Trigger.SheetURL
	}
	registry := defaultRegistry(sheetURL)
	eng := engine.NewEngine(registry, log)

	if err := engine.ValidateFlow(flow, registry); err != nil {
		return err
	}

	var secrets map[string]string
	if secretsFile != "" {
		secrets, err = engine.LoadSecrets(secretsFile)
		if err != nil {
			return fmt.Errorf("loading secrets: %w", err)
		}
	}

	var result any
	if dryRun {
		result, err = eng.DryRun(flow, input, secrets)
	} else {
		flowResult, runErr := eng.RunWithSecrets(cmd.Context(), flow, input, secrets)
		result = flowResult
		err = runErr
	}
	if err != nil {
		return err
	}

	return printJSON(result)
}
