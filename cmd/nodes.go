package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ragicflow/internal/plugin"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the available nodes",
	Args:  cobra.NoArgs,
	RunE:  listNodes,
}

var nodesDescribeCmd = &cobra.Command{
	Use:   "describe <node>",
	Short: "Show a node's parameters, credentials and display rules",
	Args:  cobra.ExactArgs(1),
	RunE:  describeNode,
}

func init() {
	nodesCmd.AddCommand(nodesDescribeCmd)
	rootCmd.AddCommand(nodesCmd)
}

func listNodes(cmd *cobra.Command, args []string) error {
	registry := defaultRegistry("")

	if outputFormat == "json" {
		descs := make([]plugin.Description, 0)
		for _, name := range registry.List() {
			n, _ := registry.Get(name)
			descs = append(descs, n.Description())
		}
		return printJSON(descs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tGROUP\tACTIONS\tDESCRIPTION")
	for _, name := range registry.List() {
		n, _ := registry.Get(name)
		desc := n.Description()
		actions := make([]string, 0)
		for _, a := range n.Actions() {
			actions = append(actions, a.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, desc.Group, strings.Join(actions, ","), desc.Description)
	}
	return w.Flush()
}

func describeNode(cmd *cobra.Command, args []string) error {
	node, err := lookupNode(defaultRegistry(""), args[0])
	if err != nil {
		return err
	}
	desc := node.Description()

	if outputFormat == "json" {
		return printJSON(desc)
	}

	fmt.Printf("Name:        %s\n", desc.Name)
	fmt.Printf("Display:     %s\n", desc.DisplayName)
	fmt.Printf("Description: %s\n", desc.Description)
	fmt.Printf("Group:       %s\n", desc.Group)
	for _, c := range desc.Credentials {
		fmt.Printf("Credentials: %s (%s)\n", c.DisplayName, c.Name)
	}

	fmt.Println("\nActions:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, a := range node.Actions() {
		fmt.Fprintf(w, "  %s\t%s\n", a.Name, a.Description)
	}
	w.Flush()

	fmt.Println("\nParameters:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tTYPE\tREQUIRED\tDEFAULT\tSHOWN WHEN")
	for _, p := range desc.Properties {
		if p.Name == plugin.ActionParameter {
			continue
		}
		def := "-"
		if p.Default != nil {
			def = fmt.Sprint(p.Default)
		}
		fmt.Fprintf(w, "  %s\t%s\t%v\t%s\t%s\n", p.Name, p.Type, p.Required, def, displayRule(p.Display))
		for _, f := range p.Fields {
			fmt.Fprintf(w, "    .%s\t%s\t%v\t-\t\n", f.Name, f.Type, f.Required)
		}
	}
	return w.Flush()
}

func displayRule(d *plugin.DisplayOptions) string {
	if d == nil {
		return "always"
	}
	var parts []string
	for key, values := range d.Show {
		parts = append(parts, fmt.Sprintf("%s in %v", key, values))
	}
	for key, values := range d.Hide {
		parts = append(parts, fmt.Sprintf("%s not in %v", key, values))
	}
	return strings.Join(parts, " and ")
}
