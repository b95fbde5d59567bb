package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragicflow/internal/plugin/builtin"
)

var (
	credentialsTrigger  bool
	credentialsSheetURL string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage Ragic credentials",
}

var credentialsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the configured API key against the Ragic server",
	Args:  cobra.NoArgs,
	RunE:  testCredentials,
}

func init() {
	credentialsTestCmd.Flags().BoolVar(&credentialsTrigger, "trigger", false, "check trigger access to the sheet instead")
	credentialsTestCmd.Flags().StringVar(&credentialsSheetURL, "sheet-url", "", "sheet URL to check (overrides config)")
	credentialsCmd.AddCommand(credentialsTestCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func testCredentials(cmd *cobra.Command, args []string) error {
	if credentialsTrigger {
		node := builtin.NewRagicTriggerNode(cfg.TriggerCredentials(credentialsSheetURL), clientOptions()...)
		if err := node.CheckCredentials(cmd.Context()); err != nil {
			return fmt.Errorf("trigger credentials rejected: %w", err)
		}
		fmt.Println("Trigger credentials are valid.")
		return nil
	}

	node := builtin.NewRagicNode(cfg.Credentials(), clientOptions()...)
	if err := node.CheckCredentials(cmd.Context()); err != nil {
		return fmt.Errorf("credentials rejected: %w", err)
	}
	fmt.Println("Credentials are valid.")
	return nil
}
