package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ragicflow/internal/plugin/builtin"
	"ragicflow/internal/store"
)

var (
	webhookCallbackURL string
	webhookSheetURL    string
	webhookEvent       string
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage Ragic webhook subscriptions",
}

func webhookActionCmd(action, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			node := builtin.NewRagicTriggerNode(cfg.TriggerCredentials(webhookSheetURL), clientOptions()...)
			input := map[string]any{"callback_url": webhookCallbackURL}
			if webhookEvent != "" {
				input["event"] = webhookEvent
			}
			result, err := node.Execute(cmd.Context(), action, input)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(result.Output)
			}
			switch action {
			case builtin.ActionCheck:
				fmt.Printf("Registered on %s: %v\n", result.Output["sheet"], result.Output["exists"])
			default:
				fmt.Printf("%s %s for %s on %s\n", action, webhookCallbackURL, result.Output["event"], result.Output["sheet"])
			}
			return nil
		},
	}
	c.Flags().StringVar(&webhookCallbackURL, "callback-url", "", "URL Ragic calls when the event fires")
	c.MarkFlagRequired("callback-url")
	return c
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the subscriptions recorded by serve",
	Args:  cobra.NoArgs,
	RunE:  listSubscriptions,
}

func init() {
	webhookCmd.PersistentFlags().StringVar(&webhookSheetURL, "sheet-url", "", "sheet URL (overrides config)")
	webhookCmd.PersistentFlags().StringVar(&webhookEvent, "event", "", "sheet event (default create)")
	webhookCmd.AddCommand(
		webhookActionCmd(builtin.ActionCheck, "Check whether a callback URL is registered"),
		webhookActionCmd(builtin.ActionSubscribe, "Register a callback URL"),
		webhookActionCmd(builtin.ActionUnsubscribe, "Remove a callback URL"),
		webhookListCmd,
	)
	rootCmd.AddCommand(webhookCmd)
}

func listSubscriptions(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(cfg.StoreType, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("opening subscription store: %w", err)
	}
	defer st.Close()

	subs, err := newTriggerManager(st).Subscriptions()
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		if subs == nil {
			subs = []store.Subscription{}
		}
		return printJSON(subs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FLOW\tEVENT\tSHEET\tCALLBACK\tACTIVE SINCE")
	for _, sub := range subs {
		since := "-"
		if sub.Active() {
			since = sub.ActivatedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", sub.Flow, sub.Event, sub.SheetURL, sub.CallbackURL, since)
	}
	return w.Flush()
}
