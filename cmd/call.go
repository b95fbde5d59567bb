package cmd

import (
	"github.com/spf13/cobra"
)

var (
	callInput    string
	callSheetURL string
)

var callCmd = &cobra.Command{
	Use:   "call <node> <action>",
	Short: "Run a single node action without a flow",
	Example: `  ragicflow call ragic read --input '{"form": "sales/1", "limit": 10}'
  ragicflow call ragic create --input '{"form": "sales/1", "json_body": {"1000001": "Acme"}}'`,
	Args: cobra.ExactArgs(2),
	RunE: callNode,
}

func init() {
	callCmd.Flags().StringVar(&callInput, "input", "{}", "JSON parameters for the action")
	callCmd.Flags().StringVar(&callSheetURL, "sheet-url", "", "sheet URL for the ragic_trigger node (overrides config)")
	rootCmd.AddCommand(callCmd)
}

func callNode(cmd *cobra.Command, args []string) error {
	node, err := lookupNode(defaultRegistry(callSheetURL), args[0])
	if err != nil {
		return err
	}

	input, err := parseJSONObject("input", callInput)
	if err != nil {
		return err
	}

	result, err := node.Execute(cmd.Context(), args[1], input)
	if err != nil {
		return err
	}
	result.Node = node.Name()
	result.Action = args[1]
	return printJSON(result)
}
