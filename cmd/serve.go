package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ragicflow/internal/engine"
	"ragicflow/internal/loader"
	"ragicflow/internal/server"
	"ragicflow/internal/store"
	"ragicflow/internal/trigger"
	"ragicflow/internal/types"
)

var (
	servePort         int
	serveSecretsFile  string
	serveSkipTriggers bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: "Serve webhook-triggered flows and Ragic callbacks. Flows with a ragic trigger " +
		"are subscribed on start (public_url must be reachable by Ragic) and unsubscribed on shutdown.",
	Args: cobra.NoArgs,
	RunE: serveWebhook,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	serveCmd.Flags().StringVar(&serveSecretsFile, "secrets-file", "", "path to .env-style secrets file")
	serveCmd.Flags().BoolVar(&serveSkipTriggers, "no-triggers", false, "do not subscribe ragic triggers")
	rootCmd.AddCommand(serveCmd)
}

func serveWebhook(cmd *cobra.Command, args []string) error {
	flows, err := loader.LoadFlows(flowsDir)
	if err != nil {
		return fmt.Errorf("loading flows: %w", err)
	}

	registry := defaultRegistry("")
	for _, f := range flows {
		if err := engine.ValidateFlow(f, registry); err != nil {
			return fmt.Errorf("flow %q: %w", f.Name, err)
		}
	}
	eng := engine.NewEngine(registry, log)

	opts := []server.Option{server.WithLogger(log)}
	if serveSecretsFile != "" {
		secrets, err := engine.LoadSecrets(serveSecretsFile)
		if err != nil {
			return fmt.Errorf("loading secrets: %w", err)
		}
		opts = append(opts, server.WithSecrets(secrets))
	}

	ragicFlows := loader.FlowsByTrigger(flows, types.TriggerRagic)
	if len(ragicFlows) > 0 && !serveSkipTriggers {
		st, err := store.NewStore(cfg.StoreType, cfg.StorePath)
		if err != nil {
			return fmt.Errorf("opening subscription store: %w", err)
		}
		defer st.Close()
		opts = append(opts, server.WithTriggers(newTriggerManager(st)))
	}

	srv := server.NewWebhookServer(eng, flows, opts...)
	addr := fmt.Sprintf(":%d", servePort)
	fmt.Printf("Starting webhook server on %s\n", addr)
	fmt.Printf("Loaded %d flow(s)\n", len(flows))
	for _, f := range loader.FlowsByTrigger(flows, types.TriggerWebhook) {
		fmt.Printf("  POST %s -> %s\n", f.Trigger.Path, f.Name)
	}
	for _, f := range ragicFlows {
		fmt.Printf("  ragic %s -> %s\n", triggerLabel(f.Trigger), f.Name)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}

func newTriggerManager(st store.Store) *trigger.Manager {
	return trigger.NewManager(trigger.Config{
		PublicURL:       cfg.PublicURL,
		APIKey:          cfg.RagicAPIKey,
		DefaultSheetURL: cfg.RagicSheetURL,
		Timeout:         cfg.HTTPTimeout,
	}, st, log)
}
