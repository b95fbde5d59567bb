package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ragicflow/internal/plugin"
)

var optionsParams string

var optionsCmd = &cobra.Command{
	Use:   "options <node> <method>",
	Short: "Load dropdown options, e.g. the forms or fields of a Ragic account",
	Example: `  ragicflow options ragic forms
  ragicflow options ragic fields --params '{"form": "sales/1"}'`,
	Args: cobra.ExactArgs(2),
	RunE: loadOptions,
}

func init() {
	optionsCmd.Flags().StringVar(&optionsParams, "params", "{}", "JSON parameters the method depends on")
	rootCmd.AddCommand(optionsCmd)
}

func loadOptions(cmd *cobra.Command, args []string) error {
	node, err := lookupNode(defaultRegistry(""), args[0])
	if err != nil {
		return err
	}
	loader, ok := node.(plugin.OptionsLoader)
	if !ok {
		return fmt.Errorf("node %q has no load options methods", args[0])
	}

	params, err := parseJSONObject("params", optionsParams)
	if err != nil {
		return err
	}

	options, err := loader.LoadOptions(cmd.Context(), args[1], params)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		if options == nil {
			options = []plugin.Option{}
		}
		return printJSON(options)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tNAME")
	for _, o := range options {
		fmt.Fprintf(w, "%s\t%s\n", o.Value, o.Name)
	}
	return w.Flush()
}
