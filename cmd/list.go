package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ragicflow/internal/loader"
	"ragicflow/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available flows",
	Args:  cobra.NoArgs,
	RunE:  listFlows,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func triggerLabel(t *types.TriggerDef) string {
	if t == nil {
		return "-"
	}
	switch t.Type {
	case types.TriggerWebhook:
		return "webhook " + t.Path
	case types.TriggerRagic:
		sheet := t.SheetURL
		if sheet == "" {
			sheet = "default sheet"
		}
		return fmt.Sprintf("ragic %s on %s", t.Event, sheet)
	}
	return t.Type
}

func listFlows(cmd *cobra.Command, args []string) error {
	flows, err := loader.LoadFlows(flowsDir)
	if err != nil {
		return fmt.Errorf("loading flows: %w", err)
	}

	names := make([]string, 0, len(flows))
	for name := range flows {
		names = append(names, name)
	}
	sort.Strings(names)

	if outputFormat == "json" {
		type flowSummary struct {
			Name        string `json:"name"`
			Version     string `json:"version"`
			Description string `json:"description"`
			Trigger     string `json:"trigger,omitempty"`
			Steps       int    `json:"steps"`
		}
		summaries := make([]flowSummary, 0, len(flows))
		for _, name := range names {
			f := flows[name]
			s := flowSummary{
				Name:        f.Name,
				Version:     f.Version,
				Description: f.Description,
				Steps:       len(f.Steps),
			}
			if f.Trigger != nil {
				s.Trigger = f.Trigger.Type
			}
			summaries = append(summaries, s)
		}
		return printJSON(summaries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION\tSTEPS\tTRIGGER")
	for _, name := range names {
		f := flows[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", f.Name, f.Version, f.Description, len(f.Steps), triggerLabel(f.Trigger))
	}
	return w.Flush()
}
