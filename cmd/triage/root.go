package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel   string
	logFormat  string
	configPath string
	dbPath     string
}

// cfg is resolved once in the persistent pre-run and read by every
// subcommand.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Reconcile regression test results and surface failure patterns",
	Long: "Triage merges raw result rows with report execution logs, collapses\n" +
		"duplicate entries per test, categorizes failures and tracks which\n" +
		"tests keep failing across builds.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat)
		var err error
		cfg, err = config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		if rootFlags.dbPath != "" {
			cfg.StorePath = rootFlags.dbPath
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&rootFlags.configPath, "config", ".triage/config.yaml", "Path to config file")
	pf.StringVar(&rootFlags.dbPath, "db", "", "Store DB path (overrides config)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(recurringCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
