package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragicflow/internal/config"
	"ragicflow/internal/logger"
)

var (
	flowsDir     string
	outputFormat string
	configFile   string
	logLevel     string

	cfg *config.Config
	log *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "ragicflow",
	Short: "ragicflow — Ragic automation flows from the command line",
	Long: "Run YAML flows that read and write Ragic databases, and start them from " +
		"Ragic webhooks when records change.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flowsDir, "flows-dir", "./flows", "directory containing flow YAML files")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log, err = logger.Init(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Debugw("config loaded", "app", cfg.AppName, "server", cfg.RagicServerName, "store", cfg.StoreType)
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}
